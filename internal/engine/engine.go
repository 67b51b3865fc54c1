package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"ancestord/pkg/types"
)

// State represents lifecycle state of the model session.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Options configures an Engine.
type Options struct {
	// Backend is a label for logs and status (cli, server, llama).
	Backend string
	// Params are the defaults for every generation; zero fields in per-call
	// params are filled from here.
	Params Params
	// Timeout bounds a whole generation including the wait for the resource.
	// Zero means no limit.
	Timeout   time.Duration
	Breaker   BreakerConfig
	Logger    zerolog.Logger
	Publisher EventPublisher
}

// Engine serializes generation against one lazily initialized model session.
type Engine struct {
	adapter Adapter
	opts    Options
	log     zerolog.Logger
	pub     EventPublisher
	breaker *gobreaker.CircuitBreaker

	genCh   chan struct{} // size 1: single in-flight generation
	waiters atomic.Int32

	initGroup singleflight.Group
	mu        sync.Mutex
	sess      Session
	state     State
	lastErr   string
	closed    bool

	generations atomic.Uint64
	fallbacks   atomic.Uint64
}

// New returns an Engine over adapter. No model work happens until the first
// generation or an explicit Warmup.
func New(adapter Adapter, opts Options) *Engine {
	if opts.Backend == "" {
		opts.Backend = "cli"
	}
	return &Engine{
		adapter: adapter,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "engine").Str("backend", opts.Backend).Logger(),
		pub:     publisherOrNoop(opts.Publisher),
		breaker: newBreaker(opts.Breaker, opts.Logger),
		genCh:   make(chan struct{}, 1),
		state:   StateIdle,
	}
}

var errEngineClosed = errors.New("engine closed")

// session returns the live session, initializing it on first use. Concurrent
// callers share one initialization; a failed initialization is not cached.
func (e *Engine) session(ctx context.Context) (Session, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errEngineClosed
	}
	if s := e.sess; s != nil {
		e.mu.Unlock()
		return s, nil
	}
	e.mu.Unlock()

	ch := e.initGroup.DoChan("session", e.initSession)
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) initSession() (any, error) {
	e.mu.Lock()
	if s := e.sess; s != nil {
		e.mu.Unlock()
		return s, nil
	}
	e.state = StateLoading
	e.mu.Unlock()

	e.pub.Publish(Event{Name: "session_init_start", Backend: e.opts.Backend})
	start := time.Now()
	// Not tied to a caller: others may be waiting on the same initialization.
	s, err := e.adapter.Start(context.Background(), e.opts.Params)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateError
		e.lastErr = err.Error()
		sessionInitsTotal.WithLabelValues("error").Inc()
		e.pub.Publish(Event{Name: "session_init_error", Backend: e.opts.Backend, Fields: map[string]any{"error": err.Error()}})
		e.log.Error().Err(err).Dur("took", time.Since(start)).Msg("model session init failed")
		return nil, err
	}
	if e.closed {
		_ = s.Close()
		return nil, errEngineClosed
	}
	e.sess = s
	e.state = StateReady
	e.lastErr = ""
	sessionInitsTotal.WithLabelValues("ok").Inc()
	e.pub.Publish(Event{Name: "session_ready", Backend: e.opts.Backend, Fields: map[string]any{"took_ms": time.Since(start).Milliseconds()}})
	e.log.Info().Dur("took", time.Since(start)).Msg("model session ready")
	return s, nil
}

// dropSession discards s after a resource failure so the next call
// re-initializes. No-op if s is no longer current.
func (e *Engine) dropSession(s Session, cause error) {
	e.mu.Lock()
	if e.sess != s {
		e.mu.Unlock()
		return
	}
	e.sess = nil
	e.state = StateError
	e.lastErr = cause.Error()
	e.mu.Unlock()
	if err := s.Close(); err != nil {
		e.log.Warn().Err(err).Msg("close failed session")
	}
	e.pub.Publish(Event{Name: "session_reset", Backend: e.opts.Backend, Fields: map[string]any{"error": cause.Error()}})
}

// Warmup initializes the session ahead of the first request.
func (e *Engine) Warmup(ctx context.Context) error {
	_, err := e.session(ctx)
	return err
}

// Ready reports whether a session is initialized.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess != nil
}

// Status builds a status report for /status.
func (e *Engine) Status() types.EngineStatus {
	e.mu.Lock()
	state, lastErr := e.state, e.lastErr
	e.mu.Unlock()
	return types.EngineStatus{
		Backend:     e.opts.Backend,
		State:       string(state),
		Busy:        e.Busy(),
		Waiters:     e.Waiters(),
		Breaker:     e.breaker.State().String(),
		LastError:   lastErr,
		Generations: e.generations.Load(),
		Fallbacks:   e.fallbacks.Load(),
	}
}

// Close waits for the in-flight generation (bounded by ctx) and releases the
// session. Later generations return the unavailable sentinel.
func (e *Engine) Close(ctx context.Context) error {
	release, lockErr := e.acquire(ctx)
	defer release()

	e.mu.Lock()
	e.closed = true
	s := e.sess
	e.sess = nil
	e.state = StateIdle
	e.mu.Unlock()
	if s == nil {
		return nil
	}
	if lockErr != nil {
		e.log.Warn().Err(lockErr).Msg("closing session while a generation is in flight")
	}
	e.pub.Publish(Event{Name: "session_close", Backend: e.opts.Backend})
	return s.Close()
}
