package translate

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	items := promptItems([]string{"Hello world", "Goodbye"})

	prompt := buildPrompt(items, "en", "ja")

	if !strings.Contains(prompt, "English subtitle texts") {
		t.Error("prompt should name the source language")
	}
	if !strings.Contains(prompt, "to Japanese") {
		t.Error("prompt should name the target language")
	}
	if !strings.Contains(prompt, "Hello world") {
		t.Error("prompt should contain the first text")
	}
	if !strings.Contains(prompt, "Goodbye") {
		t.Error("prompt should contain the second text")
	}
	if !strings.Contains(prompt, "IMPORTANT INSTRUCTIONS") {
		t.Error("prompt should contain the instruction block")
	}
	if !strings.Contains(prompt, `"index": 1`) {
		t.Error("prompt payload should number items from 1")
	}
}

func TestBuildPromptWithoutSourceLanguage(t *testing.T) {
	items := promptItems([]string{"Bonjour"})

	prompt := buildPrompt(items, "", "de")

	if !strings.Contains(prompt, "Translate the following subtitle texts to German") {
		t.Errorf("prompt should fall back to the no-source wording:\n%s", prompt)
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "English"},
		{"de", "German"},
		{"ja", "Japanese"},
		{"he", "Hebrew"},
		{"", ""},
		{"zz", "zz"},
	}

	for _, tt := range tests {
		if got := languageName(tt.code); got != tt.want {
			t.Errorf("languageName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

// Integration test: only runs if OPENAI_API_KEY is set
func TestOpenAIProviderIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set; skipping integration test")
	}

	provider, err := NewOpenAIProvider(apiKey, "")
	if err != nil {
		t.Fatalf("NewOpenAIProvider error: %v", err)
	}

	texts, err := provider.Translate(context.Background(), []string{"Hello", "Goodbye"}, "en", "es")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(texts))
	}
	for i, text := range texts {
		if text == "" {
			t.Errorf("translation %d is empty", i)
		}
	}
}

// Integration test: only runs if DEEPL_API_KEY is set
func TestDeepLProviderIntegration(t *testing.T) {
	apiKey := os.Getenv("DEEPL_API_KEY")
	if apiKey == "" {
		t.Skip("DEEPL_API_KEY not set; skipping integration test")
	}

	provider, err := NewDeepLProvider(apiKey)
	if err != nil {
		t.Fatalf("NewDeepLProvider error: %v", err)
	}

	texts, err := provider.Translate(context.Background(), []string{"Hello"}, "en", "de")
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if len(texts) != 1 {
		t.Fatalf("expected 1 translation, got %d", len(texts))
	}
	if texts[0] == "" {
		t.Error("translation is empty")
	}
}
