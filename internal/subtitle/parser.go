package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Both delimiter conventions are accepted on read; the writer emits the
// configured one.
var timestampRegex = regexp.MustCompile(
	`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`,
)

// one blank-line-delimited block of raw input
type rawBlock struct {
	startLine int
	lines     []string
}

// Parse reads an SRT-family track. Malformed blocks are skipped and reported
// as warnings; cue indices are renumbered to 1..N regardless of what the
// input carried. If no block parses, the whole input is rejected with
// *MalformedTrackError.
func Parse(r io.Reader, language string) (*Track, []Warning, error) {
	blocks, err := scanBlocks(r)
	if err != nil {
		return nil, nil, err
	}

	var cues []Cue
	var warnings []Warning

	for i, block := range blocks {
		cue, reason := parseBlock(block)
		if reason != "" {
			warnings = append(warnings, Warning{
				Block:  i + 1,
				Line:   block.startLine,
				Reason: reason,
			})
			continue
		}
		cues = append(cues, cue)
	}

	if len(cues) == 0 {
		reason := "no cue blocks found"
		if len(warnings) > 0 {
			reason = fmt.Sprintf(
				"no usable cue blocks (%d malformed)",
				len(warnings),
			)
		}
		return nil, warnings, &MalformedTrackError{Reason: reason}
	}

	// establish the ordering invariant and renumber by position
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].Start < cues[j].Start
	})
	for i := range cues {
		cues[i].Index = i + 1
	}

	return &Track{Cues: cues, Language: language}, warnings, nil
}

// Open parses the subtitle file at path.
func Open(path, language string) (*Track, []Warning, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer file.Close()

	track, warnings, err := Parse(file, language)
	if err != nil {
		var malformed *MalformedTrackError
		if errors.As(err, &malformed) {
			malformed.Path = path
		}
		return nil, warnings, err
	}
	return track, warnings, nil
}

func scanBlocks(r io.Reader) ([]rawBlock, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var blocks []rawBlock
	var current *rawBlock
	lineNum := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if strings.TrimSpace(line) == "" {
			if current != nil {
				blocks = append(blocks, *current)
				current = nil
			}
			continue
		}

		if current == nil {
			current = &rawBlock{startLine: lineNum}
		}
		current.lines = append(current.lines, line)
	}
	if current != nil {
		blocks = append(blocks, *current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading subtitle input: %w", err)
	}

	return blocks, nil
}

// parseBlock turns one raw block into a cue. A non-empty reason marks the
// block as malformed.
func parseBlock(block rawBlock) (Cue, string) {
	lines := block.lines

	// tolerate and discard a leading numeric index line; indices are
	// reassigned from position after parsing
	if len(lines) > 0 {
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
			lines = lines[1:]
		}
	}

	if len(lines) == 0 {
		return Cue{}, "missing timing line"
	}

	matches := timestampRegex.FindStringSubmatch(lines[0])
	if len(matches) != 9 {
		return Cue{}, "missing timing line"
	}

	start, err := parseTimestamp(matches[1], matches[2], matches[3], matches[4])
	if err != nil {
		return Cue{}, fmt.Sprintf("invalid start timestamp: %v", err)
	}
	end, err := parseTimestamp(matches[5], matches[6], matches[7], matches[8])
	if err != nil {
		return Cue{}, fmt.Sprintf("invalid end timestamp: %v", err)
	}
	if end < start {
		return Cue{}, fmt.Sprintf("end %v before start %v", end, start)
	}

	text := lines[1:]
	if len(text) == 0 {
		return Cue{}, "no text lines"
	}

	cue := Cue{Start: start, End: end, Lines: append([]string(nil), text...)}
	return cue, ""
}

func parseTimestamp(
	hours, minutes, seconds, millis string,
) (time.Duration, error) {
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(millis)
	if err != nil {
		return 0, err
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
