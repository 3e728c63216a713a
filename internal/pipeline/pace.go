package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces searches out and injects randomized think-time between
// page interactions. Uniform timing is what gets sessions flagged, so
// every pause carries jitter.
type Pacer struct {
	lim *rate.Limiter

	mu       sync.Mutex
	rnd      *rand.Rand
	min, max time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(searchesPerMinute float64, min, max time.Duration) *Pacer {
	if searchesPerMinute <= 0 {
		searchesPerMinute = 2
	}
	if max < min {
		max = min
	}
	return &Pacer{
		lim:   rate.NewLimiter(rate.Limit(searchesPerMinute/60.0), 1),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		min:   min,
		max:   max,
		sleep: sleepCtx,
	}
}

// WaitSearch blocks until the next search is allowed to start.
func (p *Pacer) WaitSearch(ctx context.Context) error {
	return p.lim.Wait(ctx)
}

// Think returns a randomized pause in [min, max].
func (p *Pacer) Think() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.max <= p.min {
		return p.min
	}
	return p.min + time.Duration(p.rnd.Int63n(int64(p.max-p.min)))
}

// Pause sleeps for base plus jitter, waking early on cancellation.
func (p *Pacer) Pause(ctx context.Context, base time.Duration) error {
	return p.sleep(ctx, base+p.Think())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
