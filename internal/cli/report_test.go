package cli

import (
	"testing"

	"sublate/internal/pipeline"
)

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{pipeline.StatusCompleted, ansiGreen},
		{pipeline.StatusCompletedWithUnresolved, ansiYellow},
		{pipeline.StatusFailed, ansiRed},
		{"bogus", ""},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := statusColor(tt.status); got != tt.want {
				t.Errorf("statusColor(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestColorize(t *testing.T) {
	if got := colorize("done", ansiGreen, true); got != ansiGreen+"done"+ansiReset {
		t.Errorf("colorize enabled = %q", got)
	}
	if got := colorize("done", ansiGreen, false); got != "done" {
		t.Errorf("colorize disabled = %q", got)
	}
	if got := colorize("done", "", true); got != "done" {
		t.Errorf("colorize without color = %q", got)
	}
}
