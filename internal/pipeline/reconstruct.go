package pipeline

import (
	"fmt"
	"strings"
	"time"

	"sublate/internal/policy"
	"sublate/internal/subtitle"
	"sublate/internal/translate"
)

// ReconstructionInvariantError reports a mismatch between the original track
// and the decisions/outcomes handed to the reconstructor. It is fatal for
// the file; no output is written.
type ReconstructionInvariantError struct {
	Reason string
}

func (e *ReconstructionInvariantError) Error() string {
	return fmt.Sprintf("reconstruction invariant violated: %s", e.Reason)
}

// UnresolvedCue identifies a cue that kept its source text because no
// provider translated it.
type UnresolvedCue struct {
	Index   int
	Start   time.Duration
	Snippet string
}

// UnresolvedReport lists the cues left untranslated in an otherwise complete
// output track.
type UnresolvedReport struct {
	Cues []UnresolvedCue
}

// Reconstruct builds the output track from the original cues, the per-cue
// preservation decisions, and the translation outcomes. Preserved cues keep
// their text, translated cues substitute the provider text, unresolved cues
// fall back to the source text and are listed in the report. Index, Start
// and End are copied verbatim from the original.
func Reconstruct(
	original *subtitle.Track,
	decisions map[int]policy.Decision,
	outcomes map[int]translate.Outcome,
) (*subtitle.Track, *UnresolvedReport, error) {
	known := make(map[int]bool, len(original.Cues))
	for _, cue := range original.Cues {
		known[cue.Index] = true
	}
	for index := range decisions {
		if !known[index] {
			return nil, nil, &ReconstructionInvariantError{
				Reason: fmt.Sprintf("decision for unknown cue %d", index),
			}
		}
	}
	for index := range outcomes {
		if !known[index] {
			return nil, nil, &ReconstructionInvariantError{
				Reason: fmt.Sprintf("outcome for unknown cue %d", index),
			}
		}
	}

	out := &subtitle.Track{
		Cues:     make([]subtitle.Cue, 0, len(original.Cues)),
		Language: original.Language,
	}
	report := &UnresolvedReport{}

	for _, cue := range original.Cues {
		decision, ok := decisions[cue.Index]
		if !ok {
			return nil, nil, &ReconstructionInvariantError{
				Reason: fmt.Sprintf("no decision for cue %d", cue.Index),
			}
		}

		lines := cue.Lines
		if decision == policy.Translate {
			outcome, ok := outcomes[cue.Index]
			if !ok {
				return nil, nil, &ReconstructionInvariantError{
					Reason: fmt.Sprintf("no outcome for cue %d", cue.Index),
				}
			}
			if outcome.Resolved {
				if translated := splitTranslatedText(outcome.Text); len(translated) > 0 {
					lines = translated
				} else {
					report.Cues = append(report.Cues, unresolvedCue(cue))
				}
			} else {
				report.Cues = append(report.Cues, unresolvedCue(cue))
			}
		}

		out.Cues = append(out.Cues, subtitle.Cue{
			Index: cue.Index,
			Start: cue.Start,
			End:   cue.End,
			Lines: lines,
		})
	}

	if len(out.Cues) != len(original.Cues) {
		return nil, nil, &ReconstructionInvariantError{
			Reason: fmt.Sprintf(
				"output has %d cues, input has %d",
				len(out.Cues),
				len(original.Cues),
			),
		}
	}

	return out, report, nil
}

// splitTranslatedText normalizes provider text into cue lines. Some models
// echo the ASS-style \N line break instead of a real newline.
func splitTranslatedText(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, `\N`, "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func unresolvedCue(cue subtitle.Cue) UnresolvedCue {
	return UnresolvedCue{
		Index:   cue.Index,
		Start:   cue.Start,
		Snippet: snippet(cue.Text(), 60),
	}
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
