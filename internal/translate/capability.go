package translate

import (
	"fmt"
	"time"
)

// Capability describes one provider's static limits. The table is read-only
// for the life of a run; nothing a provider returns at runtime changes it.
type Capability struct {
	Provider        string
	TargetLanguages []string      // lowercase ISO 639-1 codes; empty means any
	MaxBatchSize    int           // texts per request
	MinInterval     time.Duration // spacing between requests
	MaxConcurrent   int           // in-flight requests; 0 means unlimited
}

// SupportsTarget reports whether the provider can produce targetLang.
func (c Capability) SupportsTarget(targetLang string) bool {
	if len(c.TargetLanguages) == 0 {
		return true
	}
	for _, lang := range c.TargetLanguages {
		if lang == targetLang {
			return true
		}
	}
	return false
}

// Capabilities is the routing table, held in priority order.
type Capabilities struct {
	ordered []Capability
	byName  map[string]Capability
}

// NewCapabilities validates the table. Order is priority order: the router
// attempts providers first to last.
func NewCapabilities(caps []Capability) (*Capabilities, error) {
	if len(caps) == 0 {
		return nil, fmt.Errorf("at least one provider capability is required")
	}

	byName := make(map[string]Capability, len(caps))
	ordered := make([]Capability, 0, len(caps))
	for _, capability := range caps {
		if capability.Provider == "" {
			return nil, fmt.Errorf("capability with empty provider name")
		}
		if _, dup := byName[capability.Provider]; dup {
			return nil, fmt.Errorf(
				"duplicate capability for provider %q",
				capability.Provider,
			)
		}
		if capability.MaxBatchSize <= 0 {
			capability.MaxBatchSize = DefaultBatchSize
		}
		if capability.MinInterval < 0 {
			return nil, fmt.Errorf(
				"provider %q has negative min interval",
				capability.Provider,
			)
		}
		byName[capability.Provider] = capability
		ordered = append(ordered, capability)
	}

	return &Capabilities{ordered: ordered, byName: byName}, nil
}

// Lookup returns the capability registered for provider.
func (c *Capabilities) Lookup(provider string) (Capability, bool) {
	capability, ok := c.byName[provider]
	return capability, ok
}

// Ordered returns the table in priority order.
func (c *Capabilities) Ordered() []Capability {
	return append([]Capability(nil), c.ordered...)
}

// EligibleFor returns the providers able to produce targetLang, in priority
// order.
func (c *Capabilities) EligibleFor(targetLang string) []Capability {
	var eligible []Capability
	for _, capability := range c.ordered {
		if capability.SupportsTarget(targetLang) {
			eligible = append(eligible, capability)
		}
	}
	return eligible
}

// DefaultCapabilities is the built-in table applied when the configuration
// does not override it. DeepL covers a fixed target set; the LLM providers
// accept any target language.
func DefaultCapabilities() []Capability {
	return []Capability{
		{
			Provider: ProviderDeepL,
			TargetLanguages: []string{
				"ar", "bg", "cs", "da", "de", "el", "en", "es", "et", "fi",
				"fr", "hu", "id", "it", "ja", "ko", "lt", "lv", "nb", "nl",
				"pl", "pt", "ro", "ru", "sk", "sl", "sv", "tr", "uk", "zh",
			},
			MaxBatchSize:  50,
			MinInterval:   200 * time.Millisecond,
			MaxConcurrent: 2,
		},
		{
			Provider:      ProviderGemini,
			MaxBatchSize:  DefaultBatchSize,
			MaxConcurrent: 4,
		},
		{
			Provider:      ProviderOpenAI,
			MaxBatchSize:  DefaultBatchSize,
			MaxConcurrent: 4,
		},
		{
			Provider:      ProviderAnthropic,
			MaxBatchSize:  DefaultBatchSize,
			MaxConcurrent: 4,
		},
	}
}
