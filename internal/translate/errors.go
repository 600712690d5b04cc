package translate

import (
	"fmt"
	"net/http"
	"time"
)

// UnsupportedLanguagePairError reports that no registered provider can
// serve a language pair. The router's capability check keeps incapable
// providers from ever being attempted, so this surfaces only when the
// entire provider set is incapable.
type UnsupportedLanguagePairError struct {
	SourceLang string
	TargetLang string
}

func (e *UnsupportedLanguagePairError) Error() string {
	return fmt.Sprintf(
		"no provider supports translating %s to %s",
		e.SourceLang,
		e.TargetLang,
	)
}

// ProviderTransientError is a retryable provider failure: timeout, rate
// limit, server error, or an unparseable response. RetryAfter carries the
// provider's requested pause when it sent one.
type ProviderTransientError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderTransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Provider, e.Err)
}

func (e *ProviderTransientError) Unwrap() error {
	return e.Err
}

// ProviderPermanentError disqualifies a provider for the rest of the run:
// rejected credentials or exhausted quota.
type ProviderPermanentError struct {
	Provider string
	Err      error
}

func (e *ProviderPermanentError) Error() string {
	return fmt.Sprintf("%s: permanent failure: %v", e.Provider, e.Err)
}

func (e *ProviderPermanentError) Unwrap() error {
	return e.Err
}

// classifyStatus wraps err according to the HTTP status a provider
// returned. Auth and quota failures are permanent; anything else is worth
// a retry or a fallback to the next provider.
func classifyStatus(provider string, status int, err error) error {
	switch status {
	case http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusPaymentRequired:
		return &ProviderPermanentError{Provider: provider, Err: err}
	}
	return &ProviderTransientError{Provider: provider, Err: err}
}
