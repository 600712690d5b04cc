package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// represents single time-coded cue
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Text joins the cue's display lines with newlines.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// represents complete subtitle track
type Track struct {
	Cues     []Cue
	Language string
}

// timestamp delimiter emitted between seconds and milliseconds
type Delimiter string

const (
	DelimiterComma  Delimiter = "comma"
	DelimiterPeriod Delimiter = "period"
)

// Valid reports whether the delimiter is one of the known conventions.
func (d Delimiter) Valid() bool {
	return d == DelimiterComma || d == DelimiterPeriod
}

// Warning records a malformed block that was skipped during parsing.
type Warning struct {
	Block  int // 1-based ordinal of the block in the input
	Line   int // line number where the block starts
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("block %d (line %d): %s", w.Block, w.Line, w.Reason)
}

// MalformedTrackError reports input that yielded no usable cues at all.
// Individually damaged blocks are skipped and reported as Warnings instead.
type MalformedTrackError struct {
	Path   string
	Reason string
}

func (e *MalformedTrackError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed subtitle track: %s", e.Reason)
	}
	return fmt.Sprintf("malformed subtitle track %s: %s", e.Path, e.Reason)
}
