package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	deeplProURL  = "https://api.deepl.com/v2/translate"
	deeplFreeURL = "https://api-free.deepl.com/v2/translate"

	// DeepL-specific status for exhausted quota
	deeplStatusQuotaExceeded = 456
)

// translates through the DeepL REST API
type DeepLProvider struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

type DeepLOption func(*DeepLProvider)

// WithDeepLHTTPClient overrides the HTTP client.
func WithDeepLHTTPClient(client *http.Client) DeepLOption {
	return func(p *DeepLProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithDeepLEndpoint overrides the translate endpoint.
func WithDeepLEndpoint(endpoint string) DeepLOption {
	return func(p *DeepLProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// NewDeepLProvider builds a DeepL adapter. Free-plan keys (":fx" suffix)
// route to the free API host.
func NewDeepLProvider(apiKey string, opts ...DeepLOption) (*DeepLProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	endpoint := deeplProURL
	if strings.HasSuffix(apiKey, ":fx") {
		endpoint = deeplFreeURL
	}

	p := &DeepLProvider{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *DeepLProvider) Name() string {
	return ProviderDeepL
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (p *DeepLProvider) Translate(
	ctx context.Context,
	texts []string,
	sourceLang, targetLang string,
) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	form := url.Values{}
	for _, text := range texts {
		form.Add("text", text)
	}
	if sourceLang != "" {
		form.Set("source_lang", strings.ToUpper(sourceLang))
	}
	form.Set("target_lang", deeplTargetCode(targetLang))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build DeepL request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+p.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderTransientError{Provider: ProviderDeepL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ProviderTransientError{
			Provider: ProviderDeepL,
			Err:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.classifyResponse(resp, body)
	}

	var decoded deeplResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &ProviderTransientError{
			Provider: ProviderDeepL,
			Err:      fmt.Errorf("failed to decode response: %w", err),
		}
	}
	if len(decoded.Translations) != len(texts) {
		return nil, &ProviderTransientError{
			Provider: ProviderDeepL,
			Err: fmt.Errorf(
				"expected %d translations, got %d",
				len(texts),
				len(decoded.Translations),
			),
		}
	}

	out := make([]string, len(texts))
	for i, translation := range decoded.Translations {
		out[i] = translation.Text
	}
	return out, nil
}

func (p *DeepLProvider) classifyResponse(resp *http.Response, body []byte) error {
	err := fmt.Errorf(
		"DeepL returned status %d: %s",
		resp.StatusCode,
		truncateString(strings.TrimSpace(string(body)), 200),
	)

	if resp.StatusCode == deeplStatusQuotaExceeded {
		return &ProviderPermanentError{Provider: ProviderDeepL, Err: err}
	}

	classified := classifyStatus(ProviderDeepL, resp.StatusCode, err)
	var transient *ProviderTransientError
	if errors.As(classified, &transient) {
		transient.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return classified
}

// deeplTargetCode maps ISO 639-1 codes onto DeepL's target variants. DeepL
// requires a regional variant for English and Portuguese targets.
func deeplTargetCode(lang string) string {
	switch strings.ToLower(lang) {
	case "en":
		return "EN-US"
	case "pt":
		return "PT-BR"
	default:
		return strings.ToUpper(lang)
	}
}

// parseRetryAfter reads a Retry-After header as either delay seconds or an
// HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
