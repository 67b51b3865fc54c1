package engine

import (
	"context"
	"sync"
	"time"
)

// acquire waits for the single in-flight slot. Blocked callers are admitted
// in arrival order and give up when ctx is done. Returns a release func to be
// deferred; calling it more than once is safe.
func (e *Engine) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	// Fast path: resource idle
	select {
	case e.genCh <- struct{}{}:
		lockWaitSeconds.Observe(0)
		return e.releaseFunc(), nil
	default:
	}

	e.waiters.Add(1)
	lockWaiters.Inc()
	start := time.Now()
	defer func() {
		e.waiters.Add(-1)
		lockWaiters.Dec()
		lockWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	select {
	case e.genCh <- struct{}{}:
		return e.releaseFunc(), nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

func (e *Engine) releaseFunc() func() {
	var once sync.Once
	return func() { once.Do(func() { <-e.genCh }) }
}

// Busy reports whether a generation currently holds the resource.
func (e *Engine) Busy() bool { return len(e.genCh) > 0 }

// Waiters returns the number of callers blocked on the resource.
func (e *Engine) Waiters() int { return int(e.waiters.Load()) }
