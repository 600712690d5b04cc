package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// translates through OpenAI Chat Completions
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	if model == "" {
		model = "gpt-5-mini"
	}

	return &OpenAIProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) Translate(
	ctx context.Context,
	texts []string,
	sourceLang, targetLang string,
) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	prompt := buildPrompt(promptItems(texts), sourceLang, targetLang)

	completion, err := p.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: p.model,
		},
	)
	if err != nil {
		return nil, p.classify(err)
	}

	if completion == nil || len(completion.Choices) == 0 {
		return nil, &ProviderTransientError{
			Provider: ProviderOpenAI,
			Err:      fmt.Errorf("empty response"),
		}
	}

	responseText := completion.Choices[0].Message.Content
	if responseText == "" {
		return nil, &ProviderTransientError{
			Provider: ProviderOpenAI,
			Err:      fmt.Errorf("no text in response"),
		}
	}

	return parseResponseText(ProviderOpenAI, responseText, len(texts))
}

func (p *OpenAIProvider) classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return classifyStatus(ProviderOpenAI, apierr.StatusCode, err)
	}
	return &ProviderTransientError{Provider: ProviderOpenAI, Err: err}
}
