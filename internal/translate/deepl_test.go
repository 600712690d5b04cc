package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestDeepL(t *testing.T, handler http.HandlerFunc) *DeepLProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewDeepLProvider(
		"test-key",
		WithDeepLEndpoint(server.URL),
		WithDeepLHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewDeepLProvider failed: %v", err)
	}
	return provider
}

func TestDeepLTranslate(t *testing.T) {
	provider := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "DeepL-Auth-Key test-key" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm failed: %v", err)
		}
		if texts := r.PostForm["text"]; len(texts) != 2 || texts[0] != "Hello" || texts[1] != "Goodbye" {
			t.Errorf("unexpected text fields %v", r.PostForm["text"])
		}
		if got := r.PostForm.Get("source_lang"); got != "EN" {
			t.Errorf("expected source_lang EN, got %q", got)
		}
		if got := r.PostForm.Get("target_lang"); got != "DE" {
			t.Errorf("expected target_lang DE, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translations":[
			{"detected_source_language":"EN","text":"Hallo"},
			{"detected_source_language":"EN","text":"Auf Wiedersehen"}
		]}`))
	})

	out, err := provider.Translate(
		context.Background(),
		[]string{"Hello", "Goodbye"},
		"en",
		"de",
	)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(out) != 2 || out[0] != "Hallo" || out[1] != "Auf Wiedersehen" {
		t.Errorf("unexpected translations %v", out)
	}
}

func TestDeepLTargetCodeMapping(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"en", "EN-US"},
		{"pt", "PT-BR"},
		{"de", "DE"},
		{"zh", "ZH"},
		{"JA", "JA"},
	}

	for _, tt := range tests {
		if got := deeplTargetCode(tt.lang); got != tt.want {
			t.Errorf("deeplTargetCode(%q) = %q, want %q", tt.lang, got, tt.want)
		}
	}
}

func TestDeepLRateLimitIsTransient(t *testing.T) {
	provider := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := provider.Translate(context.Background(), []string{"Hello"}, "en", "de")
	var transient *ProviderTransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected ProviderTransientError, got %v", err)
	}
	if transient.RetryAfter != 7*time.Second {
		t.Errorf("expected RetryAfter 7s, got %v", transient.RetryAfter)
	}
}

func TestDeepLQuotaExceededIsPermanent(t *testing.T) {
	provider := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(deeplStatusQuotaExceeded)
		w.Write([]byte(`{"message":"Quota for this billing period has been exceeded."}`))
	})

	_, err := provider.Translate(context.Background(), []string{"Hello"}, "en", "de")
	var permanent *ProviderPermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("expected ProviderPermanentError, got %v", err)
	}
}

func TestDeepLAuthFailureIsPermanent(t *testing.T) {
	provider := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := provider.Translate(context.Background(), []string{"Hello"}, "en", "de")
	var permanent *ProviderPermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("expected ProviderPermanentError, got %v", err)
	}
}

func TestDeepLServerErrorIsTransient(t *testing.T) {
	provider := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := provider.Translate(context.Background(), []string{"Hello"}, "en", "de")
	var transient *ProviderTransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected ProviderTransientError, got %v", err)
	}
}

func TestDeepLCountMismatchIsTransient(t *testing.T) {
	provider := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translations":[{"text":"Hallo"}]}`))
	})

	_, err := provider.Translate(
		context.Background(),
		[]string{"Hello", "Goodbye"},
		"en",
		"de",
	)
	var transient *ProviderTransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected ProviderTransientError, got %v", err)
	}
}

func TestDeepLFreeKeyRoutesToFreeHost(t *testing.T) {
	provider, err := NewDeepLProvider("some-key:fx")
	if err != nil {
		t.Fatalf("NewDeepLProvider failed: %v", err)
	}
	if provider.endpoint != deeplFreeURL {
		t.Errorf("expected free endpoint, got %q", provider.endpoint)
	}

	provider, err = NewDeepLProvider("some-key")
	if err != nil {
		t.Fatalf("NewDeepLProvider failed: %v", err)
	}
	if provider.endpoint != deeplProURL {
		t.Errorf("expected pro endpoint, got %q", provider.endpoint)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"soon", 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.value); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
