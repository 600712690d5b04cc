package translate

import (
	"context"
	"sync"
)

// DefaultPairConcurrency bounds how many language pairs translate at once.
const DefaultPairConcurrency = 2

// Executor groups units by language pair and resolves each group through
// the router. A request never mixes language pairs or providers; distinct
// pairs run concurrently.
type Executor struct {
	router      *Router
	concurrency int
}

type ExecutorOption func(*Executor)

// WithPairConcurrency sets how many language pairs run at once.
func WithPairConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func NewExecutor(router *Router, opts ...ExecutorOption) *Executor {
	e := &Executor{
		router:      router,
		concurrency: DefaultPairConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type pairKey struct {
	source string
	target string
}

// Execute resolves every unit to an outcome keyed by cue index. Cue indices
// must be unique across units. Units keep their submission order within
// each pair group.
func (e *Executor) Execute(
	ctx context.Context,
	units []Unit,
) (map[int]Outcome, error) {
	if len(units) == 0 {
		return map[int]Outcome{}, nil
	}

	groups := make(map[pairKey][]Unit)
	var order []pairKey
	for _, unit := range units {
		key := pairKey{source: unit.SourceLang, target: unit.TargetLang}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], unit)
	}

	if len(order) == 1 {
		return e.router.TranslateBatch(ctx, groups[order[0]])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type groupResult struct {
		outcomes map[int]Outcome
		err      error
	}

	workChan := make(chan pairKey)
	resultChan := make(chan groupResult, len(order))

	concurrency := e.concurrency
	if concurrency > len(order) {
		concurrency = len(order)
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case key, ok := <-workChan:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						return
					}

					outcomes, err := e.router.TranslateBatch(ctx, groups[key])
					if err != nil {
						cancel()
					}
					resultChan <- groupResult{outcomes: outcomes, err: err}
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for _, key := range order {
			select {
			case <-ctx.Done():
				return
			case workChan <- key:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	merged := make(map[int]Outcome, len(units))
	var firstErr error
	for result := range resultChan {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		for cueIndex, outcome := range result.outcomes {
			merged[cueIndex] = outcome
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}

	return merged, nil
}
