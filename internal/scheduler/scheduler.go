package scheduler

import (
	"context"
	"log"
	"math/rand"
	"time"
)

type Task func(ctx context.Context) error

// Every runs task immediately, then once per interval until ctx is
// cancelled. Each scheduled run is offset by up to jitter so repeated
// runs never land at identical times of day. Task errors are logged and
// the schedule keeps going.
func Every(ctx context.Context, interval, jitter time.Duration, name string, task Task) {
	run := func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	}

	run()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if jitter > 0 {
				d := time.Duration(rand.Int63n(int64(jitter)))
				log.Printf("[%s] next run delayed %s", name, d.Round(time.Second))
				select {
				case <-ctx.Done():
					return
				case <-time.After(d):
				}
			}
			run()
		}
	}
}
