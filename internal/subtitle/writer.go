package subtitle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteOptions controls serialization.
type WriteOptions struct {
	Delimiter Delimiter
}

func (o WriteOptions) delimiter() Delimiter {
	if o.Delimiter.Valid() {
		return o.Delimiter
	}
	return DelimiterComma
}

// Write serializes the track. Index lines are written from position so the
// output always carries a contiguous 1..N numbering.
func Write(w io.Writer, track *Track, opts WriteOptions) error {
	delim := opts.delimiter()

	var sb strings.Builder
	for i, cue := range track.Cues {
		// index (1-based)
		sb.WriteString(fmt.Sprintf("%d\n", i+1))

		// timestamps: 00:00:00,000 --> 00:00:00,000
		sb.WriteString(fmt.Sprintf("%s --> %s\n",
			formatTimestamp(cue.Start, delim),
			formatTimestamp(cue.End, delim)))

		// text
		sb.WriteString(cue.Text())
		sb.WriteString("\n\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to write subtitle data: %w", err)
	}
	return nil
}

// WriteFile serializes the track to path atomically: the content goes to a
// temp file in the same directory and is renamed into place only once fully
// written, so a cancelled or failed run never leaves a partial track behind.
func WriteFile(path string, track *Track, opts WriteOptions) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Write(tmp, track, opts); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set temp file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to commit output file: %w", err)
	}
	return nil
}

func formatTimestamp(d time.Duration, delim Delimiter) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	sep := ","
	if delim == DelimiterPeriod {
		sep = "."
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, seconds, sep, millis)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}
