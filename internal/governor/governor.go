// Package governor bounds how many backend queries run at once per region
// and spaces out their submissions.
package governor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	DefaultCapacity = 5
	DefaultSpacing  = 200 * time.Millisecond
)

// Governor hands out per-region query slots. Waiters are served in FIFO
// order. The zero value is not usable; call New.
type Governor struct {
	capacity int64
	spacing  time.Duration

	mu    sync.Mutex
	gates map[string]*gate
}

type gate struct {
	slots   *semaphore.Weighted
	limiter *rate.Limiter
	active  atomic.Int64
}

type Option func(*Governor)

// WithCapacity sets the number of concurrent queries allowed per region.
func WithCapacity(n int) Option {
	return func(g *Governor) {
		if n > 0 {
			g.capacity = int64(n)
		}
	}
}

// WithSpacing sets the minimum interval between two submissions in the same
// region. Zero disables spacing.
func WithSpacing(d time.Duration) Option {
	return func(g *Governor) {
		if d >= 0 {
			g.spacing = d
		}
	}
}

func New(opts ...Option) *Governor {
	g := &Governor{
		capacity: DefaultCapacity,
		spacing:  DefaultSpacing,
		gates:    make(map[string]*gate),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Governor) Capacity() int { return int(g.capacity) }

func (g *Governor) gate(region string) *gate {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gt, ok := g.gates[region]; ok {
		return gt
	}
	limit := rate.Inf
	if g.spacing > 0 {
		limit = rate.Every(g.spacing)
	}
	gt := &gate{
		slots:   semaphore.NewWeighted(g.capacity),
		limiter: rate.NewLimiter(limit, 1),
	}
	g.gates[region] = gt
	return gt
}

// Acquire blocks until a slot in region is free and the submission spacing
// has elapsed. On error no slot is held.
func (g *Governor) Acquire(ctx context.Context, region string) error {
	gt := g.gate(region)
	if err := gt.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	gt.active.Add(1)
	if err := gt.limiter.Wait(ctx); err != nil {
		g.Release(region)
		return err
	}
	return nil
}

// Pace waits for the submission spacing only. It is used by a slot holder
// before re-submitting.
func (g *Governor) Pace(ctx context.Context, region string) error {
	return g.gate(region).limiter.Wait(ctx)
}

// Release returns a slot obtained by Acquire.
func (g *Governor) Release(region string) {
	gt := g.gate(region)
	gt.active.Add(-1)
	gt.slots.Release(1)
}

// Active reports the number of occupied slots in region.
func (g *Governor) Active(region string) int {
	return int(g.gate(region).active.Load())
}
