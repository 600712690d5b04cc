package translate

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// translates through Google Gemini
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(
	ctx context.Context,
	apiKey, model string,
) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

func (p *GeminiProvider) Translate(
	ctx context.Context,
	texts []string,
	sourceLang, targetLang string,
) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	prompt := buildPrompt(promptItems(texts), sourceLang, targetLang)

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, p.classify(err)
	}

	if result == nil || len(result.Candidates) == 0 {
		return nil, &ProviderTransientError{
			Provider: ProviderGemini,
			Err:      fmt.Errorf("empty response"),
		}
	}

	var responseText string
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				responseText += part.Text
			}
		}
		if responseText != "" {
			break
		}
	}
	if responseText == "" {
		return nil, &ProviderTransientError{
			Provider: ProviderGemini,
			Err:      fmt.Errorf("no text in response"),
		}
	}

	return parseResponseText(ProviderGemini, responseText, len(texts))
}

func (p *GeminiProvider) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(ProviderGemini, apiErr.Code, err)
	}
	return &ProviderTransientError{Provider: ProviderGemini, Err: err}
}
