package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeAdapter is a lightweight in-memory adapter used for tests.
type fakeAdapter struct {
	mu         sync.Mutex
	startErr   error
	startDelay time.Duration
	genErr     error
	failAfter  int // emit this many tokens before genErr
	tokens     []string
	tokenDelay time.Duration
	hold       chan struct{} // if set, Generate waits on it before emitting

	starts    atomic.Int32
	closes    atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	lastErr   atomic.Value // error returned by the last Generate
}

func (f *fakeAdapter) setStartErr(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *fakeAdapter) setGenErr(err error) {
	f.mu.Lock()
	f.genErr = err
	f.mu.Unlock()
}

func (f *fakeAdapter) Start(ctx context.Context, _ Params) (Session, error) {
	f.starts.Add(1)
	if f.startDelay > 0 {
		time.Sleep(f.startDelay)
	}
	f.mu.Lock()
	err := f.startErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &fakeSession{f: f}, nil
}

type fakeSession struct{ f *fakeAdapter }

func (s *fakeSession) Generate(ctx context.Context, _ string, _ Params, onToken func(string) error) (res FinalResult, err error) {
	f := s.f
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	defer func() {
		if err != nil {
			f.lastErr.Store(err)
		}
	}()

	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		}
	}
	f.mu.Lock()
	genErr := f.genErr
	f.mu.Unlock()
	for i, tok := range f.tokens {
		if genErr != nil && i >= f.failAfter {
			return FinalResult{}, genErr
		}
		if f.tokenDelay > 0 {
			select {
			case <-time.After(f.tokenDelay):
			case <-ctx.Done():
				return FinalResult{}, ctx.Err()
			}
		}
		if err := onToken(tok); err != nil {
			return FinalResult{}, err
		}
	}
	if genErr != nil {
		return FinalResult{}, genErr
	}
	return FinalResult{FinishReason: "stop"}, nil
}

func (s *fakeSession) Close() error {
	s.f.closes.Add(1)
	return nil
}

func newTestEngine(a Adapter, mutate func(*Options)) *Engine {
	opts := Options{
		Backend: "fake",
		Params:  Params{MaxTokens: 32, Temperature: 0.2},
		Logger:  zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(a, opts)
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// writeScript writes an executable shell script and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

// createModelFile creates a small placeholder model file and returns its path.
func createModelFile(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "test.Q4_K_M.gguf")
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("create model: %v", err)
	}
	return p
}

func collect(seq func(func(string) bool)) []string {
	var out []string
	for s := range seq {
		out = append(out, s)
	}
	return out
}
