package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// one indexed text in the JSON payload exchanged with LLM providers
type promptItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// promptItems numbers texts 1..N for the request payload.
func promptItems(texts []string) []promptItem {
	items := make([]promptItem, len(texts))
	for i, text := range texts {
		items[i] = promptItem{Index: i + 1, Text: text}
	}
	return items
}

// parseResponseText turns one LLM response into position-aligned texts.
// Parse failures are transient: a retried request often yields valid JSON.
func parseResponseText(provider, responseText string, n int) ([]string, error) {
	responseText = cleanJSONResponse(responseText)

	items, err := extractPayload(responseText)
	if err != nil {
		return nil, &ProviderTransientError{
			Provider: provider,
			Err: fmt.Errorf(
				"failed to parse JSON response: %w (response: %s)",
				err,
				truncateString(responseText, 200),
			),
		}
	}

	return alignPayload(items, n), nil
}

func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)

	jsonBlockRegex := regexp.MustCompile("```(?:json)?\\s*")
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")

	s = strings.TrimSpace(s)

	return s
}

// fixInvalidEscapes repairs invalid JSON escape sequences like \N (SRT
// newline) by escaping the backslash, so JSON decoding preserves the
// literal \N in the output.
func fixInvalidEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if i < len(s)-1 && s[i] == '\\' {
			next := s[i+1]
			// Valid JSON escape sequences: ", \, /, b, f, n, r, t, u
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				result.WriteByte(s[i])
				result.WriteByte(s[i+1])
				i += 2
			default:
				result.WriteString("\\\\")
				result.WriteByte(next)
				i += 2
			}
		} else {
			result.WriteByte(s[i])
			i++
		}
	}

	return result.String()
}

// extractPayload finds and decodes the first JSON value in text that holds
// indexed translations, either as a bare array or wrapped in an object.
func extractPayload(text string) ([]promptItem, error) {
	text = fixInvalidEscapes(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if items, ok := tryExtractPayload(raw); ok && len(items) > 0 {
			return items, nil
		}
	}
	return nil, fmt.Errorf("no valid translation JSON found in response")
}

func tryExtractPayload(raw json.RawMessage) ([]promptItem, bool) {
	var items []promptItem
	if err := json.Unmarshal(raw, &items); err == nil && validatePayload(items) {
		return items, true
	}

	wrapperKeys := []string{"results", "translations", "data", "items"}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range wrapperKeys {
		if fieldRaw, exists := wrapper[key]; exists {
			var fieldItems []promptItem
			if err := json.Unmarshal(
				fieldRaw,
				&fieldItems,
			); err == nil && validatePayload(fieldItems) {
				return fieldItems, true
			}
		}
	}

	for _, fieldRaw := range wrapper {
		var fieldItems []promptItem
		if err := json.Unmarshal(
			fieldRaw,
			&fieldItems,
		); err == nil && validatePayload(fieldItems) {
			return fieldItems, true
		}
	}

	return nil, false
}

func validatePayload(items []promptItem) bool {
	for _, item := range items {
		if item.Text != "" {
			return true
		}
	}
	return false
}

// alignPayload maps 1-based indexed items back onto positions. Positions a
// response skipped, duplicated out of range, or left empty stay "", which
// the router reads as a per-text failure rather than a failed batch.
func alignPayload(items []promptItem, n int) []string {
	out := make([]string, n)
	for _, item := range items {
		if item.Index < 1 || item.Index > n {
			continue
		}
		if item.Text == "" {
			continue
		}
		out[item.Index-1] = item.Text
	}
	return out
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
