package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// translates through Anthropic Claude
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeHaiku4_5
	}

	return &AnthropicProvider{
		client: client,
		model:  m,
	}, nil
}

func (p *AnthropicProvider) Name() string {
	return ProviderAnthropic
}

func (p *AnthropicProvider) Translate(
	ctx context.Context,
	texts []string,
	sourceLang, targetLang string,
) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	prompt := buildPrompt(promptItems(texts), sourceLang, targetLang)

	message, err := p.client.Messages.New(
		ctx,
		anthropic.MessageNewParams{
			Model:     p.model,
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewTextBlock(prompt),
				),
			},
		},
	)
	if err != nil {
		return nil, p.classify(err)
	}

	if message == nil || len(message.Content) == 0 {
		return nil, &ProviderTransientError{
			Provider: ProviderAnthropic,
			Err:      fmt.Errorf("empty response"),
		}
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}
	if responseText == "" {
		return nil, &ProviderTransientError{
			Provider: ProviderAnthropic,
			Err:      fmt.Errorf("no text in response"),
		}
	}

	return parseResponseText(ProviderAnthropic, responseText, len(texts))
}

func (p *AnthropicProvider) classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return classifyStatus(ProviderAnthropic, apierr.StatusCode, err)
	}
	return &ProviderTransientError{Provider: ProviderAnthropic, Err: err}
}
