package pipeline

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"sublate/internal/policy"
	"sublate/internal/subtitle"
	"sublate/internal/translate"
)

func testTrack(texts ...string) *subtitle.Track {
	track := &subtitle.Track{Language: "en"}
	for i, text := range texts {
		start := time.Duration(i*2) * time.Second
		track.Cues = append(track.Cues, subtitle.Cue{
			Index: i + 1,
			Start: start,
			End:   start + 1500*time.Millisecond,
			Lines: strings.Split(text, "\n"),
		})
	}
	return track
}

func allDecisions(
	track *subtitle.Track,
	decision policy.Decision,
) map[int]policy.Decision {
	decisions := make(map[int]policy.Decision, len(track.Cues))
	for _, cue := range track.Cues {
		decisions[cue.Index] = decision
	}
	return decisions
}

func TestReconstructSubstitutesTranslations(t *testing.T) {
	track := testTrack("First line.", "Second line.", "Third line.")
	decisions := allDecisions(track, policy.Translate)
	outcomes := map[int]translate.Outcome{
		1: {Text: "Erste Zeile.", Provider: "alpha", Resolved: true},
		2: {Text: "Zweite Zeile.", Provider: "alpha", Resolved: true},
		3: {Text: "Dritte Zeile.", Provider: "alpha", Resolved: true},
	}

	out, report, err := Reconstruct(track, decisions, outcomes)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if len(report.Cues) != 0 {
		t.Errorf("unresolved cues = %d, want 0", len(report.Cues))
	}
	if len(out.Cues) != len(track.Cues) {
		t.Fatalf("output cues = %d, want %d", len(out.Cues), len(track.Cues))
	}

	wantTexts := []string{"Erste Zeile.", "Zweite Zeile.", "Dritte Zeile."}
	for i, cue := range out.Cues {
		if cue.Text() != wantTexts[i] {
			t.Errorf("cue %d text = %q, want %q", cue.Index, cue.Text(), wantTexts[i])
		}
		original := track.Cues[i]
		if cue.Index != original.Index {
			t.Errorf("cue %d index = %d, want %d", i, cue.Index, original.Index)
		}
		if cue.Start != original.Start || cue.End != original.End {
			t.Errorf("cue %d timing = %v-%v, want %v-%v",
				cue.Index, cue.Start, cue.End, original.Start, original.End)
		}
	}
}

func TestReconstructPreservesCues(t *testing.T) {
	track := testTrack("Schon in der Zielsprache.", "Needs translating.")
	decisions := map[int]policy.Decision{
		1: policy.Preserve,
		2: policy.Translate,
	}
	outcomes := map[int]translate.Outcome{
		2: {Text: "Wird übersetzt.", Provider: "alpha", Resolved: true},
	}

	out, report, err := Reconstruct(track, decisions, outcomes)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if len(report.Cues) != 0 {
		t.Errorf("unresolved cues = %d, want 0", len(report.Cues))
	}
	if got := out.Cues[0].Text(); got != "Schon in der Zielsprache." {
		t.Errorf("preserved cue text = %q, want original", got)
	}
	if got := out.Cues[1].Text(); got != "Wird übersetzt." {
		t.Errorf("translated cue text = %q", got)
	}
}

func TestReconstructFallsBackToSourceText(t *testing.T) {
	track := testTrack("First line.", "Second line.", "Third line.")
	decisions := allDecisions(track, policy.Translate)
	outcomes := map[int]translate.Outcome{
		1: {Text: "Erste Zeile.", Provider: "alpha", Resolved: true},
		2: {},
		3: {Text: "Dritte Zeile.", Provider: "alpha", Resolved: true},
	}

	out, report, err := Reconstruct(track, decisions, outcomes)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if got := out.Cues[1].Text(); got != "Second line." {
		t.Errorf("unresolved cue text = %q, want source text", got)
	}
	if len(report.Cues) != 1 {
		t.Fatalf("unresolved cues = %d, want 1", len(report.Cues))
	}
	unresolved := report.Cues[0]
	if unresolved.Index != 2 {
		t.Errorf("unresolved index = %d, want 2", unresolved.Index)
	}
	if unresolved.Start != track.Cues[1].Start {
		t.Errorf("unresolved start = %v, want %v", unresolved.Start, track.Cues[1].Start)
	}
	if unresolved.Snippet != "Second line." {
		t.Errorf("unresolved snippet = %q", unresolved.Snippet)
	}
}

func TestReconstructEmptyTranslationFallsBack(t *testing.T) {
	track := testTrack("Keep me around.")
	decisions := allDecisions(track, policy.Translate)
	outcomes := map[int]translate.Outcome{
		1: {Text: "  \n ", Provider: "alpha", Resolved: true},
	}

	out, report, err := Reconstruct(track, decisions, outcomes)
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if got := out.Cues[0].Text(); got != "Keep me around." {
		t.Errorf("cue text = %q, want source text", got)
	}
	if len(report.Cues) != 1 {
		t.Errorf("unresolved cues = %d, want 1", len(report.Cues))
	}
}

func TestReconstructMultilineTranslation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "real newline",
			text: "Zeile eins\nZeile zwei",
			want: []string{"Zeile eins", "Zeile zwei"},
		},
		{
			name: "ass style break",
			text: `Zeile eins\NZeile zwei`,
			want: []string{"Zeile eins", "Zeile zwei"},
		},
		{
			name: "windows newline",
			text: "Zeile eins\r\nZeile zwei",
			want: []string{"Zeile eins", "Zeile zwei"},
		},
		{
			name: "trailing newline dropped",
			text: "Zeile eins\n",
			want: []string{"Zeile eins"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := testTrack("line one\nline two")
			decisions := allDecisions(track, policy.Translate)
			outcomes := map[int]translate.Outcome{
				1: {Text: tt.text, Provider: "alpha", Resolved: true},
			}

			out, _, err := Reconstruct(track, decisions, outcomes)
			if err != nil {
				t.Fatalf("Reconstruct() error = %v", err)
			}
			if !reflect.DeepEqual(out.Cues[0].Lines, tt.want) {
				t.Errorf("lines = %q, want %q", out.Cues[0].Lines, tt.want)
			}
		})
	}
}

func TestReconstructInvariantViolations(t *testing.T) {
	track := testTrack("First line.", "Second line.")

	tests := []struct {
		name      string
		decisions map[int]policy.Decision
		outcomes  map[int]translate.Outcome
		reason    string
	}{
		{
			name: "missing decision",
			decisions: map[int]policy.Decision{
				1: policy.Translate,
			},
			outcomes: map[int]translate.Outcome{
				1: {Text: "x", Resolved: true},
			},
			reason: "no decision for cue 2",
		},
		{
			name: "decision for unknown cue",
			decisions: map[int]policy.Decision{
				1:  policy.Preserve,
				2:  policy.Preserve,
				99: policy.Translate,
			},
			outcomes: map[int]translate.Outcome{},
			reason:   "decision for unknown cue 99",
		},
		{
			name: "outcome for unknown cue",
			decisions: map[int]policy.Decision{
				1: policy.Preserve,
				2: policy.Preserve,
			},
			outcomes: map[int]translate.Outcome{
				99: {Text: "x", Resolved: true},
			},
			reason: "outcome for unknown cue 99",
		},
		{
			name: "translate decision without outcome",
			decisions: map[int]policy.Decision{
				1: policy.Translate,
				2: policy.Preserve,
			},
			outcomes: map[int]translate.Outcome{},
			reason:   "no outcome for cue 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, report, err := Reconstruct(track, tt.decisions, tt.outcomes)
			if err == nil {
				t.Fatal("Reconstruct() expected error")
			}
			var invariant *ReconstructionInvariantError
			if !errors.As(err, &invariant) {
				t.Fatalf("error type = %T, want *ReconstructionInvariantError", err)
			}
			if !strings.Contains(invariant.Reason, tt.reason) {
				t.Errorf("reason = %q, want substring %q", invariant.Reason, tt.reason)
			}
			if out != nil || report != nil {
				t.Error("expected nil track and report on invariant violation")
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("abcde ", 20)
	got := snippet(long, 60)
	if len([]rune(got)) != 63 {
		t.Errorf("snippet length = %d runes, want 63", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("snippet = %q, want ... suffix", got)
	}

	if got := snippet("two\nlines here", 60); got != "two lines here" {
		t.Errorf("snippet = %q, want newline collapsed", got)
	}
	if got := snippet("short", 60); got != "short" {
		t.Errorf("snippet = %q, want unchanged", got)
	}
}
