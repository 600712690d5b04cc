package translate

import (
	"context"
	"sync"
	"time"
)

// gate enforces one provider's pacing and in-flight budget. Acquire blocks
// until a concurrency slot is free and the minimum interval since the last
// reserved call has passed.
type gate struct {
	slots    chan struct{}
	interval time.Duration

	mu       sync.Mutex
	nextCall time.Time
}

func newGate(capability Capability) *gate {
	g := &gate{interval: capability.MinInterval}
	if capability.MaxConcurrent > 0 {
		g.slots = make(chan struct{}, capability.MaxConcurrent)
	}
	return g
}

func (g *gate) acquire(ctx context.Context) error {
	if g.slots != nil {
		select {
		case g.slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if g.interval > 0 {
		// reserve the next call slot under the lock, then wait outside it
		g.mu.Lock()
		now := time.Now()
		wait := g.nextCall.Sub(now)
		if wait < 0 {
			wait = 0
		}
		g.nextCall = now.Add(wait + g.interval)
		g.mu.Unlock()

		if wait > 0 {
			if err := sleepContext(ctx, wait); err != nil {
				g.release()
				return err
			}
		}
	}

	return nil
}

func (g *gate) release() {
	if g.slots != nil {
		<-g.slots
	}
}

// sleepContext pauses for d unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
