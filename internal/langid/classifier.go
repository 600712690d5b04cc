package langid

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"

	"sublate/internal/subtitle"
)

// Unknown is the language tag returned when no language can be determined.
const Unknown = "und"

// below this many letters the detector's confidence is scaled down
const shortTextLetterFloor = 12

// formatting tags carry no language signal
var markupRegex = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)

// Result is the advisory classification for a single cue. Language is a
// lowercase ISO 639-1 code, or Unknown.
type Result struct {
	CueIndex   int
	Language   string
	Confidence float64
}

// Classifier detects the language of short subtitle text against a fixed
// candidate set. Detection is deterministic for a given text and candidate
// set. Safe for concurrent use.
type Classifier struct {
	detector lingua.LanguageDetector
	codes    map[lingua.Language]string
}

// New builds a classifier over the given ISO 639-1 codes. The underlying
// detector requires at least two distinct candidate languages.
func New(languages []string) (*Classifier, error) {
	byCode := languagesByCode()

	codes := make(map[lingua.Language]string, len(languages))
	candidates := make([]lingua.Language, 0, len(languages))
	for _, code := range languages {
		normalized := strings.ToLower(strings.TrimSpace(code))
		lang, ok := byCode[normalized]
		if !ok {
			return nil, fmt.Errorf("unsupported language code: %q", code)
		}
		if _, dup := codes[lang]; dup {
			continue
		}
		codes[lang] = normalized
		candidates = append(candidates, lang)
	}
	if len(candidates) < 2 {
		return nil, fmt.Errorf(
			"language detection needs at least 2 distinct candidate languages, got %d",
			len(candidates),
		)
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(candidates...).
		WithPreloadedLanguageModels().
		Build()

	return &Classifier{detector: detector, codes: codes}, nil
}

// Classify returns the detected language and confidence for text. Text
// without letters (music notes, digits, dashes) is Unknown with zero
// confidence and never reaches the detector.
func (c *Classifier) Classify(text string) Result {
	clean := stripMarkup(text)
	letters := countLetters(clean)
	if letters == 0 {
		return Result{Language: Unknown}
	}

	values := c.detector.ComputeLanguageConfidenceValues(clean)
	if len(values) == 0 {
		return Result{Language: Unknown}
	}
	top := values[0]
	confidence := top.Value()
	if confidence == 0 {
		return Result{Language: Unknown}
	}

	// damp confidence in proportion to how little text the detector saw
	if letters < shortTextLetterFloor {
		confidence *= float64(letters) / float64(shortTextLetterFloor)
	}

	code, ok := c.codes[top.Language()]
	if !ok {
		return Result{Language: Unknown}
	}
	return Result{Language: code, Confidence: confidence}
}

// ClassifyAll classifies every cue, fanning out across CPUs. The returned
// slice is position-aligned with cues and each Result carries its cue index.
func (c *Classifier) ClassifyAll(cues []subtitle.Cue) []Result {
	results := make([]Result, len(cues))

	concurrency := runtime.GOMAXPROCS(0)
	if concurrency > len(cues) {
		concurrency = len(cues)
	}
	if concurrency <= 1 {
		for i := range cues {
			results[i] = c.classifyCue(cues[i])
		}
		return results
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i := range cues {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = c.classifyCue(cues[i])
		}(i)
	}
	wg.Wait()

	return results
}

func (c *Classifier) classifyCue(cue subtitle.Cue) Result {
	res := c.Classify(cue.Text())
	res.CueIndex = cue.Index
	return res
}

func stripMarkup(text string) string {
	return strings.TrimSpace(markupRegex.ReplaceAllString(text, " "))
}

func countLetters(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// languagesByCode maps lowercase ISO 639-1 codes to lingua languages.
func languagesByCode() map[string]lingua.Language {
	byCode := make(map[string]lingua.Language, 75)
	for _, lang := range lingua.AllLanguages() {
		byCode[strings.ToLower(lang.IsoCode639_1().String())] = lang
	}
	return byCode
}
