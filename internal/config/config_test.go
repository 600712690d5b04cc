package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"sublate/internal/subtitle"
	"sublate/internal/translate"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, resolved, exists, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if exists {
		t.Fatal("expected no config file in temp HOME")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}

	if cfg.Pipeline.Workers != 2 || cfg.Pipeline.PairConcurrency != 2 {
		t.Errorf("concurrency defaults = %d/%d, want 2/2",
			cfg.Pipeline.Workers, cfg.Pipeline.PairConcurrency)
	}
	if cfg.OutputDelimiter() != subtitle.DelimiterComma {
		t.Errorf("delimiter = %q, want comma", cfg.Pipeline.Delimiter)
	}
	if cfg.Policy.ConfidenceThreshold != 0.75 {
		t.Errorf("threshold = %v, want 0.75", cfg.Policy.ConfidenceThreshold)
	}
	wantProviders := []string{"deepl", "gemini", "openai", "anthropic"}
	if !reflect.DeepEqual(cfg.Translation.Providers, wantProviders) {
		t.Errorf("providers = %v, want %v", cfg.Translation.Providers, wantProviders)
	}
	wantTracker := filepath.Join(home, ".local", "share", "sublate", "track.db")
	if cfg.Tracker.Path != wantTracker {
		t.Errorf("tracker path = %q, want %q", cfg.Tracker.Path, wantTracker)
	}
	if len(cfg.Translation.ClassifierLanguages) < 2 {
		t.Errorf("classifier languages = %v", cfg.Translation.ClassifierLanguages)
	}
}

func TestLoadParsesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	content := `
[pipeline]
workers = 4
pair_concurrency = 1
file_timeout = 60
delimiter = "PERIOD"
output_dir = "~/translated"

[translation]
source_language = "EN"
target_languages = ["DE", "de", "fr"]
providers = ["openai"]
batch_size = 10

[policy]
confidence_threshold = 0.9

[models]
openai = "gpt-5"

[tracker]
path = "~/state/track.db"
`
	path := filepath.Join(t.TempDir(), "sublate.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}

	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.PairConcurrency != 1 {
		t.Errorf("concurrency = %d/%d, want 4/1",
			cfg.Pipeline.Workers, cfg.Pipeline.PairConcurrency)
	}
	if cfg.FileTimeout() != time.Minute {
		t.Errorf("file timeout = %v, want 1m", cfg.FileTimeout())
	}
	if cfg.OutputDelimiter() != subtitle.DelimiterPeriod {
		t.Errorf("delimiter = %q, want period", cfg.Pipeline.Delimiter)
	}
	if want := filepath.Join(home, "translated"); cfg.Pipeline.OutputDir != want {
		t.Errorf("output dir = %q, want %q", cfg.Pipeline.OutputDir, want)
	}
	if cfg.Translation.SourceLanguage != "en" {
		t.Errorf("source = %q, want en", cfg.Translation.SourceLanguage)
	}
	if want := []string{"de", "fr"}; !reflect.DeepEqual(cfg.Translation.TargetLanguages, want) {
		t.Errorf("targets = %v, want %v", cfg.Translation.TargetLanguages, want)
	}
	if !reflect.DeepEqual(cfg.Translation.Providers, []string{"openai"}) {
		t.Errorf("providers = %v, want [openai]", cfg.Translation.Providers)
	}
	if cfg.Translation.BatchSize != 10 {
		t.Errorf("batch size = %d, want 10", cfg.Translation.BatchSize)
	}
	if cfg.Policy.ConfidenceThreshold != 0.9 {
		t.Errorf("threshold = %v, want 0.9", cfg.Policy.ConfidenceThreshold)
	}
	if cfg.Models.OpenAI != "gpt-5" {
		t.Errorf("openai model = %q, want gpt-5", cfg.Models.OpenAI)
	}
	if want := filepath.Join(home, "state", "track.db"); cfg.Tracker.Path != want {
		t.Errorf("tracker path = %q, want %q", cfg.Tracker.Path, want)
	}

	// fields the file omits keep their defaults
	if cfg.Translation.RetryMaxAttempts != 3 || cfg.Translation.RetryMaxDelay != 10 {
		t.Errorf("retry settings = %d/%d, want defaults",
			cfg.Translation.RetryMaxAttempts, cfg.Translation.RetryMaxDelay)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "zero workers",
			content: "[pipeline]\nworkers = 0\n",
			wantErr: "pipeline.workers",
		},
		{
			name:    "bad delimiter",
			content: "[pipeline]\ndelimiter = \"semicolon\"\n",
			wantErr: "pipeline.delimiter",
		},
		{
			name:    "threshold out of range",
			content: "[policy]\nconfidence_threshold = 1.5\n",
			wantErr: "confidence_threshold",
		},
		{
			name:    "unknown provider",
			content: "[translation]\nproviders = [\"netflix\"]\n",
			wantErr: "unknown provider",
		},
		{
			name:    "duplicate provider",
			content: "[translation]\nproviders = [\"openai\", \"openai\"]\n",
			wantErr: "duplicate provider",
		},
		{
			name:    "negative batch size",
			content: "[translation]\nbatch_size = -1\n",
			wantErr: "batch_size",
		},
		{
			name:    "single classifier language",
			content: "[translation]\nclassifier_languages = [\"en\"]\n",
			wantErr: "at least two",
		},
		{
			name:    "retry max below base",
			content: "[translation]\nretry_max_delay = 0\n",
			wantErr: "retry_max_delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sublate.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}

			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestCapabilitiesFollowPriorityOrder(t *testing.T) {
	cfg := Default()
	cfg.Translation.Providers = []string{"anthropic", "deepl"}
	cfg.Translation.BatchSize = 10

	caps, err := cfg.Capabilities()
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	if len(caps) != 2 {
		t.Fatalf("capabilities = %d, want 2", len(caps))
	}
	if caps[0].Provider != translate.ProviderAnthropic {
		t.Errorf("first provider = %q, want anthropic", caps[0].Provider)
	}
	if caps[1].Provider != translate.ProviderDeepL {
		t.Errorf("second provider = %q, want deepl", caps[1].Provider)
	}
	for _, capability := range caps {
		if capability.MaxBatchSize != 10 {
			t.Errorf("%s batch = %d, want capped at 10",
				capability.Provider, capability.MaxBatchSize)
		}
	}
	if caps[1].SupportsTarget("he") {
		t.Error("deepl capability should not claim Hebrew")
	}
	if !caps[0].SupportsTarget("he") {
		t.Error("anthropic capability should accept any target")
	}

	cfg.Translation.Providers = []string{"bogus"}
	if _, err := cfg.Capabilities(); err == nil {
		t.Fatal("Capabilities() accepted unknown provider")
	}
}

func TestRetryPolicyMapping(t *testing.T) {
	cfg := Default()
	got := cfg.RetryPolicy()
	want := translate.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
	if got != want {
		t.Errorf("RetryPolicy() = %+v, want %+v", got, want)
	}
}

func TestClassifierLanguagesMergeRunLanguages(t *testing.T) {
	cfg := Default()
	cfg.Translation.SourceLanguage = "cs"

	langs := cfg.ClassifierLanguages("DE", "cs", "hu")

	counts := make(map[string]int)
	for _, code := range langs {
		counts[code]++
	}
	for _, code := range []string{"cs", "de", "hu", "en"} {
		if counts[code] != 1 {
			t.Errorf("language %q appears %d times, want 1", code, counts[code])
		}
	}
	for code := range counts {
		if code != strings.ToLower(code) {
			t.Errorf("language %q is not lowercase", code)
		}
	}
}

func TestCreateSampleRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config", "sublate.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample() error = %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load(sample) error = %v", err)
	}
	if !exists {
		t.Fatal("sample file not found by Load")
	}

	// the sample documents the defaults
	def := Default()
	if cfg.Pipeline.Workers != def.Pipeline.Workers {
		t.Errorf("sample workers = %d, want %d",
			cfg.Pipeline.Workers, def.Pipeline.Workers)
	}
	if cfg.Policy.ConfidenceThreshold != def.Policy.ConfidenceThreshold {
		t.Errorf("sample threshold = %v, want %v",
			cfg.Policy.ConfidenceThreshold, def.Policy.ConfidenceThreshold)
	}
	if !reflect.DeepEqual(cfg.Translation.Providers, def.Translation.Providers) {
		t.Errorf("sample providers = %v, want %v",
			cfg.Translation.Providers, def.Translation.Providers)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error = %v", err)
	}
	if want := filepath.Join(home, ".config", "sublate", "config.toml"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}
