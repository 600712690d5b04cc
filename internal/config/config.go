// Package config loads and validates sublate's TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sublate/internal/subtitle"
	"sublate/internal/translate"
)

//go:embed sample_config.toml
var sampleConfig string

// Pipeline contains file processing and output settings.
type Pipeline struct {
	Workers         int    `toml:"workers"`
	PairConcurrency int    `toml:"pair_concurrency"`
	FileTimeout     int    `toml:"file_timeout"` // seconds, 0 disables
	Delimiter       string `toml:"delimiter"`
	OutputDir       string `toml:"output_dir"`
}

// Translation contains language selection and provider routing settings.
type Translation struct {
	SourceLanguage      string   `toml:"source_language"`
	TargetLanguages     []string `toml:"target_languages"`
	ClassifierLanguages []string `toml:"classifier_languages"`
	Providers           []string `toml:"providers"` // priority order
	BatchSize           int      `toml:"batch_size"`
	RetryMaxAttempts    int      `toml:"retry_max_attempts"`
	RetryBaseDelay      int      `toml:"retry_base_delay"` // seconds
	RetryMaxDelay       int      `toml:"retry_max_delay"`  // seconds
}

// Policy contains preservation settings.
type Policy struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// Models contains per-provider model overrides. Empty values use each
// provider's default.
type Models struct {
	Gemini    string `toml:"gemini"`
	OpenAI    string `toml:"openai"`
	Anthropic string `toml:"anthropic"`
}

// Tracker contains outcome database settings.
type Tracker struct {
	Path string `toml:"path"`
}

// Config encapsulates all configuration values for sublate.
type Config struct {
	Pipeline    Pipeline    `toml:"pipeline"`
	Translation Translation `toml:"translation"`
	Policy      Policy      `toml:"policy"`
	Models      Models      `toml:"models"`
	Tracker     Tracker     `toml:"tracker"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/sublate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sublate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// FileTimeout returns the per file x target timeout, zero when disabled.
func (c *Config) FileTimeout() time.Duration {
	return time.Duration(c.Pipeline.FileTimeout) * time.Second
}

// OutputDelimiter returns the configured millisecond separator.
func (c *Config) OutputDelimiter() subtitle.Delimiter {
	return subtitle.Delimiter(c.Pipeline.Delimiter)
}

// RetryPolicy maps the retry settings onto the router's policy.
func (c *Config) RetryPolicy() translate.RetryPolicy {
	return translate.RetryPolicy{
		MaxAttempts: c.Translation.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.Translation.RetryBaseDelay) * time.Second,
		MaxDelay:    time.Duration(c.Translation.RetryMaxDelay) * time.Second,
	}
}

// Capabilities returns the provider routing table in configured priority
// order. A configured batch size caps each provider's own limit.
func (c *Config) Capabilities() ([]translate.Capability, error) {
	byName := make(map[string]translate.Capability)
	for _, capability := range translate.DefaultCapabilities() {
		byName[capability.Provider] = capability
	}

	caps := make([]translate.Capability, 0, len(c.Translation.Providers))
	for _, name := range c.Translation.Providers {
		capability, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		if c.Translation.BatchSize > 0 && c.Translation.BatchSize < capability.MaxBatchSize {
			capability.MaxBatchSize = c.Translation.BatchSize
		}
		caps = append(caps, capability)
	}
	return caps, nil
}

// ClassifierLanguages returns the detection candidate set for a run. The
// declared source and any extra codes (the run's targets) are always
// included.
func (c *Config) ClassifierLanguages(extra ...string) []string {
	seen := make(map[string]bool)
	var langs []string
	add := func(code string) {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		langs = append(langs, code)
	}

	for _, code := range c.Translation.ClassifierLanguages {
		add(code)
	}
	add(c.Translation.SourceLanguage)
	for _, code := range extra {
		add(code)
	}
	return langs
}

// ExpandPath resolves ~ prefixes and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
