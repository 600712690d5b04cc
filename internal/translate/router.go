package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sleeper pauses between retry attempts. Tests inject instant sleepers.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds transient retries on a single provider before the
// router moves to the next one.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy retries a transient failure twice more with
// exponential backoff before giving the next provider a turn.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Router resolves translation units against the provider set. Providers
// are attempted in capability-table order; a provider whose capability set
// lacks the target language is never attempted for it. Permanent failures
// disqualify a provider for the rest of the run. Safe for concurrent use.
type Router struct {
	caps      *Capabilities
	providers map[string]Provider
	retry     RetryPolicy
	sleep     Sleeper
	gates     map[string]*gate

	mu   sync.Mutex
	dead map[string]error
}

type RouterOption func(*Router)

// WithRetryPolicy overrides the transient retry policy.
func WithRetryPolicy(policy RetryPolicy) RouterOption {
	return func(r *Router) {
		if policy.MaxAttempts > 0 {
			r.retry = policy
		}
	}
}

// WithSleeper overrides how the router waits between retries.
func WithSleeper(sleep Sleeper) RouterOption {
	return func(r *Router) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRouter builds a router over the registered providers. Every provider
// must have a capability entry; capability entries without a registered
// provider are skipped at routing time.
func NewRouter(
	capabilities *Capabilities,
	providers []Provider,
	opts ...RouterOption,
) (*Router, error) {
	if capabilities == nil {
		return nil, fmt.Errorf("capabilities table is required")
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	byName := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		name := provider.Name()
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", name)
		}
		if _, ok := capabilities.Lookup(name); !ok {
			return nil, fmt.Errorf(
				"no capability registered for provider %q",
				name,
			)
		}
		byName[name] = provider
	}

	r := &Router{
		caps:      capabilities,
		providers: byName,
		retry:     DefaultRetryPolicy(),
		sleep:     sleepContext,
		gates:     make(map[string]*gate, len(byName)),
		dead:      make(map[string]error),
	}
	for _, opt := range opts {
		opt(r)
	}

	for name := range byName {
		capability, _ := capabilities.Lookup(name)
		r.gates[name] = newGate(capability)
	}

	return r, nil
}

// CheckPair reports whether any live registered provider can serve the
// pair. Returns *UnsupportedLanguagePairError when none can.
func (r *Router) CheckPair(sourceLang, targetLang string) error {
	for _, capability := range r.caps.Ordered() {
		if _, ok := r.providers[capability.Provider]; !ok {
			continue
		}
		if r.isDead(capability.Provider) {
			continue
		}
		if capability.SupportsTarget(targetLang) {
			return nil
		}
	}
	return &UnsupportedLanguagePairError{
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}
}

// Translate resolves a single unit.
func (r *Router) Translate(ctx context.Context, unit Unit) (Outcome, error) {
	outcomes, err := r.TranslateBatch(ctx, []Unit{unit})
	if err != nil {
		return Outcome{}, err
	}
	return outcomes[unit.CueIndex], nil
}

// TranslateBatch resolves a group of units sharing one language pair. Every
// unit gets an outcome keyed by cue index: resolved with a translation, or
// unresolved after all eligible providers are exhausted. The returned error
// is reserved for cancellation and caller mistakes; exhaustion is not an
// error.
func (r *Router) TranslateBatch(
	ctx context.Context,
	units []Unit,
) (map[int]Outcome, error) {
	outcomes := make(map[int]Outcome, len(units))
	if len(units) == 0 {
		return outcomes, nil
	}

	sourceLang := units[0].SourceLang
	targetLang := units[0].TargetLang
	for _, unit := range units[1:] {
		if unit.SourceLang != sourceLang || unit.TargetLang != targetLang {
			return nil, fmt.Errorf(
				"mixed language pairs in batch: %s->%s and %s->%s",
				sourceLang,
				targetLang,
				unit.SourceLang,
				unit.TargetLang,
			)
		}
	}

	pending := append([]Unit(nil), units...)

	for _, capability := range r.caps.Ordered() {
		if len(pending) == 0 {
			break
		}
		provider, ok := r.providers[capability.Provider]
		if !ok {
			continue
		}
		if r.isDead(capability.Provider) {
			continue
		}
		if !capability.SupportsTarget(targetLang) {
			continue
		}

		var leftover []Unit
		for start := 0; start < len(pending); start += capability.MaxBatchSize {
			end := start + capability.MaxBatchSize
			if end > len(pending) {
				end = len(pending)
			}
			chunk := pending[start:end]

			texts := make([]string, len(chunk))
			for i, unit := range chunk {
				texts[i] = unit.SourceText
			}

			translated, err := r.translateWithRetry(
				ctx,
				provider,
				capability,
				texts,
				sourceLang,
				targetLang,
			)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				var permanent *ProviderPermanentError
				if errors.As(err, &permanent) {
					r.markDead(capability.Provider, err)
					leftover = append(leftover, pending[start:]...)
					break
				}
				leftover = append(leftover, chunk...)
				continue
			}

			for i, unit := range chunk {
				if translated[i] == "" {
					leftover = append(leftover, unit)
					continue
				}
				outcomes[unit.CueIndex] = Outcome{
					Text:     translated[i],
					Provider: capability.Provider,
					Resolved: true,
				}
			}
		}
		pending = leftover
	}

	for _, unit := range pending {
		outcomes[unit.CueIndex] = Outcome{}
	}

	return outcomes, nil
}

// translateWithRetry runs one provider call with bounded exponential
// backoff on transient failures. Permanent failures and context ends
// return immediately.
func (r *Router) translateWithRetry(
	ctx context.Context,
	provider Provider,
	capability Capability,
	texts []string,
	sourceLang, targetLang string,
) ([]string, error) {
	g := r.gates[capability.Provider]

	var lastErr error
	for attempt := 1; attempt <= r.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := g.acquire(ctx); err != nil {
			return nil, err
		}
		translated, err := provider.Translate(ctx, texts, sourceLang, targetLang)
		g.release()

		if err == nil {
			if len(translated) == len(texts) {
				return translated, nil
			}
			err = &ProviderTransientError{
				Provider: capability.Provider,
				Err: fmt.Errorf(
					"provider returned %d texts for %d inputs",
					len(translated),
					len(texts),
				),
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var permanent *ProviderPermanentError
		if errors.As(err, &permanent) {
			return nil, err
		}

		lastErr = err
		if attempt == r.retry.MaxAttempts {
			break
		}

		delay := backoffDelay(r.retry, attempt)
		var transient *ProviderTransientError
		if errors.As(err, &transient) && transient.RetryAfter > delay {
			delay = capDelay(transient.RetryAfter, r.retry.MaxDelay)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (r *Router) markDead(provider string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.dead[provider]; !exists {
		r.dead[provider] = err
	}
}

func (r *Router) isDead(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, dead := r.dead[provider]
	return dead
}

// DeadProviders lists providers disqualified during this run with the
// failure that disqualified them.
func (r *Router) DeadProviders() map[string]error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dead) == 0 {
		return nil
	}
	out := make(map[string]error, len(r.dead))
	for name, err := range r.dead {
		out[name] = err
	}
	return out
}

// backoffDelay doubles the base delay per prior attempt, capped at the
// policy maximum.
func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.BaseDelay
	for i := 1; i < attempt; i++ {
		if delay > policy.MaxDelay/2 {
			delay = policy.MaxDelay
			break
		}
		delay *= 2
	}
	if delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

func capDelay(d, limit time.Duration) time.Duration {
	if d > limit {
		return limit
	}
	return d
}
