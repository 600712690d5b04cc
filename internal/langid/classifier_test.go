package langid

import (
	"strings"
	"testing"
	"time"

	"sublate/internal/subtitle"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New([]string{"en", "de"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
	}{
		{name: "empty", languages: nil},
		{name: "single language", languages: []string{"en"}},
		{name: "duplicate collapses to one", languages: []string{"en", "EN"}},
		{name: "unknown code", languages: []string{"en", "xx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.languages); err == nil {
				t.Errorf("expected error for %v", tt.languages)
			}
		})
	}
}

func TestClassifyDetectsLanguage(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		text string
		want string
	}{
		{"The quick brown fox jumps over the lazy dog.", "en"},
		{"Der schnelle braune Fuchs springt über den faulen Hund.", "de"},
	}

	for _, tt := range tests {
		res := c.Classify(tt.text)
		if res.Language != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, res.Language, tt.want)
		}
		if res.Confidence <= 0 || res.Confidence > 1 {
			t.Errorf("Classify(%q) confidence %v out of (0,1]", tt.text, res.Confidence)
		}
	}
}

func TestClassifyNonLinguisticText(t *testing.T) {
	c := newTestClassifier(t)

	tests := []string{
		"",
		"...",
		"1234",
		"♪♪",
		"- - -",
		"<i>42</i>",
		"{\\an8}???",
	}

	for _, text := range tests {
		res := c.Classify(text)
		if res.Language != Unknown {
			t.Errorf("Classify(%q) = %q, want %q", text, res.Language, Unknown)
		}
		if res.Confidence != 0 {
			t.Errorf("Classify(%q) confidence %v, want 0", text, res.Confidence)
		}
	}
}

func TestClassifyDampsShortText(t *testing.T) {
	c := newTestClassifier(t)

	// "Hi." carries two letters; whatever the detector thinks, the damped
	// confidence cannot exceed 2/12
	res := c.Classify("Hi.")
	limit := 2.0 / float64(shortTextLetterFloor)
	if res.Confidence > limit {
		t.Errorf("short text confidence %v exceeds damping limit %v", res.Confidence, limit)
	}
}

func TestClassifyIgnoresMarkup(t *testing.T) {
	c := newTestClassifier(t)

	plain := c.Classify("The quick brown fox jumps over the lazy dog.")
	tagged := c.Classify("<i>The quick brown fox jumps over the lazy dog.</i>")

	if tagged.Language != plain.Language {
		t.Errorf("markup changed detection: %q vs %q", tagged.Language, plain.Language)
	}
	if tagged.Confidence != plain.Confidence {
		t.Errorf("markup changed confidence: %v vs %v", tagged.Confidence, plain.Confidence)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := newTestClassifier(t)

	text := "Guten Morgen, wie geht es dir heute?"
	first := c.Classify(text)
	for i := 0; i < 5; i++ {
		again := c.Classify(text)
		if again != first {
			t.Fatalf("call %d: %+v differs from first %+v", i, again, first)
		}
	}
}

func TestClassifyMixedTextReturnsDominant(t *testing.T) {
	c := newTestClassifier(t)

	// mostly German with a single English word mixed in
	res := c.Classify("Der Hund läuft schnell durch den großen Park, okay?")
	if res.Language != "de" {
		t.Errorf("expected dominant language de, got %q", res.Language)
	}
}

func TestClassifyAll(t *testing.T) {
	c := newTestClassifier(t)

	cues := []subtitle.Cue{
		{
			Index: 1,
			Start: 1 * time.Second,
			End:   2 * time.Second,
			Lines: []string{"The quick brown fox jumps over the lazy dog."},
		},
		{
			Index: 2,
			Start: 3 * time.Second,
			End:   4 * time.Second,
			Lines: []string{"Der schnelle braune Fuchs springt", "über den faulen Hund."},
		},
		{
			Index: 3,
			Start: 5 * time.Second,
			End:   6 * time.Second,
			Lines: []string{"♪♪"},
		},
	}

	results := c.ClassifyAll(cues)
	if len(results) != len(cues) {
		t.Fatalf("expected %d results, got %d", len(cues), len(results))
	}

	for i, res := range results {
		if res.CueIndex != cues[i].Index {
			t.Errorf("result %d: cue index %d, want %d", i, res.CueIndex, cues[i].Index)
		}
		// position alignment must match a direct classification of the text
		direct := c.Classify(strings.Join(cues[i].Lines, "\n"))
		if res.Language != direct.Language || res.Confidence != direct.Confidence {
			t.Errorf(
				"result %d: %+v differs from direct classification %+v",
				i,
				res,
				direct,
			)
		}
	}

	if results[0].Language != "en" {
		t.Errorf("cue 1: expected en, got %q", results[0].Language)
	}
	if results[1].Language != "de" {
		t.Errorf("cue 2: expected de, got %q", results[1].Language)
	}
	if results[2].Language != Unknown {
		t.Errorf("cue 3: expected %q, got %q", Unknown, results[2].Language)
	}
}
