package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unit is one cue's worth of text awaiting translation for one language
// pair.
type Unit struct {
	CueIndex   int
	SourceText string
	SourceLang string
	TargetLang string
}

// Outcome is the terminal resolution of a unit. An unresolved outcome keeps
// Resolved false; the caller falls back to the source text.
type Outcome struct {
	Text     string
	Provider string
	Resolved bool
}

// Provider translates a batch of texts between one language pair. The
// returned slice is position-aligned with texts; an empty string at a
// position marks a text the provider could not translate in this call.
// Implementations wrap failures in ProviderTransientError or
// ProviderPermanentError.
type Provider interface {
	Name() string
	Translate(
		ctx context.Context,
		texts []string,
		sourceLang, targetLang string,
	) ([]string, error)
}

const (
	ProviderDeepL     = "deepl"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const DefaultBatchSize = 50

// buildPrompt creates the translation prompt for LLM providers.
func buildPrompt(items []promptItem, sourceLang, targetLang string) string {
	var sb strings.Builder

	target := languageName(targetLang)
	if source := languageName(sourceLang); source != "" {
		sb.WriteString(fmt.Sprintf(
			"Translate the following %s subtitle texts to %s.\n\n",
			source,
			target,
		))
	} else {
		sb.WriteString(fmt.Sprintf(
			"Translate the following subtitle texts to %s.\n\n",
			target,
		))
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString(
		"1. Translate ONLY the text content, preserving the meaning.\n",
	)
	sb.WriteString(
		"2. Keep any formatting tags (like {\\pos}, {\\an}, etc.) unchanged.\n",
	)
	sb.WriteString("3. Preserve line breaks (\\N) in the same positions.\n")
	sb.WriteString("4. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("5. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString(
		"6. The 'index' values must match the input indices exactly.\n",
	)
	sb.WriteString("7. Do not add any explanation or markdown formatting.\n\n")

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}

// languageName renders an ISO 639-1 code as an English language name for
// prompt text. Unparseable codes pass through unchanged; empty stays empty.
func languageName(code string) string {
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
