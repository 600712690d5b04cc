package config

import (
	"sublate/internal/policy"
	"sublate/internal/translate"
)

const (
	defaultWorkers         = 2
	defaultPairConcurrency = 2
	defaultFileTimeout     = 600 // seconds
	defaultDelimiter       = "comma"
	defaultBatchSize       = translate.DefaultBatchSize
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 1  // seconds
	defaultRetryMaxDelay   = 10 // seconds
	defaultTrackerPath     = "~/.local/share/sublate/track.db"
)

// classifier candidates when the config does not name its own set
var defaultClassifierLanguages = []string{
	"en", "es", "fr", "de", "it", "pt", "nl", "pl",
	"ru", "uk", "tr", "ar", "he", "ja", "ko", "zh",
}

func defaultProviders() []string {
	return []string{
		translate.ProviderDeepL,
		translate.ProviderGemini,
		translate.ProviderOpenAI,
		translate.ProviderAnthropic,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			Workers:         defaultWorkers,
			PairConcurrency: defaultPairConcurrency,
			FileTimeout:     defaultFileTimeout,
			Delimiter:       defaultDelimiter,
		},
		Translation: Translation{
			ClassifierLanguages: append([]string(nil), defaultClassifierLanguages...),
			Providers:           defaultProviders(),
			BatchSize:           defaultBatchSize,
			RetryMaxAttempts:    defaultRetryAttempts,
			RetryBaseDelay:      defaultRetryBaseDelay,
			RetryMaxDelay:       defaultRetryMaxDelay,
		},
		Policy: Policy{
			ConfidenceThreshold: policy.DefaultConfidenceThreshold,
		},
		Tracker: Tracker{
			Path: defaultTrackerPath,
		},
	}
}
