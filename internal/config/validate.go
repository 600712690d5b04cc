package config

import (
	"errors"
	"fmt"

	"sublate/internal/translate"
)

var knownProviders = map[string]bool{
	translate.ProviderDeepL:     true,
	translate.ProviderGemini:    true,
	translate.ProviderOpenAI:    true,
	translate.ProviderAnthropic: true,
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers <= 0 {
		return errors.New("pipeline.workers must be positive")
	}
	if c.Pipeline.PairConcurrency <= 0 {
		return errors.New("pipeline.pair_concurrency must be positive")
	}
	if c.Pipeline.FileTimeout < 0 {
		return errors.New("pipeline.file_timeout must not be negative")
	}
	if !c.OutputDelimiter().Valid() {
		return fmt.Errorf(
			"pipeline.delimiter must be %q or %q",
			"comma", "period",
		)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.BatchSize <= 0 {
		return errors.New("translation.batch_size must be positive")
	}
	if c.Translation.RetryMaxAttempts <= 0 {
		return errors.New("translation.retry_max_attempts must be positive")
	}
	if c.Translation.RetryBaseDelay <= 0 {
		return errors.New("translation.retry_base_delay must be positive (seconds)")
	}
	if c.Translation.RetryMaxDelay < c.Translation.RetryBaseDelay {
		return errors.New("translation.retry_max_delay must be at least translation.retry_base_delay")
	}

	if len(c.Translation.Providers) == 0 {
		return errors.New("translation.providers must name at least one provider")
	}
	seen := make(map[string]bool, len(c.Translation.Providers))
	for _, name := range c.Translation.Providers {
		if !knownProviders[name] {
			return fmt.Errorf("translation.providers: unknown provider %q", name)
		}
		if seen[name] {
			return fmt.Errorf("translation.providers: duplicate provider %q", name)
		}
		seen[name] = true
	}

	if len(c.Translation.ClassifierLanguages) < 2 {
		return errors.New("translation.classifier_languages needs at least two languages")
	}
	return nil
}

func (c *Config) validatePolicy() error {
	if c.Policy.ConfidenceThreshold < 0 || c.Policy.ConfidenceThreshold > 1 {
		return errors.New("policy.confidence_threshold must be between 0 and 1")
	}
	return nil
}
