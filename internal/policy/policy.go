package policy

import (
	"sublate/internal/langid"
)

// DefaultConfidenceThreshold is the preservation threshold applied when the
// configuration does not set one.
const DefaultConfidenceThreshold = 0.75

// Decision says what happens to a single cue for a given target language.
type Decision int

const (
	// Translate sends the cue text to a provider.
	Translate Decision = iota
	// Preserve copies the cue text through untouched.
	Preserve
)

func (d Decision) String() string {
	switch d {
	case Preserve:
		return "preserve"
	case Translate:
		return "translate"
	default:
		return "unknown"
	}
}

// Decide returns Preserve only when the detected language equals the target
// AND confidence is strictly above the threshold. Unknown, low-confidence,
// and foreign-language cues all translate.
func Decide(res langid.Result, targetLang string, threshold float64) Decision {
	if res.Language == langid.Unknown {
		return Translate
	}
	if res.Language == targetLang && res.Confidence > threshold {
		return Preserve
	}
	return Translate
}
