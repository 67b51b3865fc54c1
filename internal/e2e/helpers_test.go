package e2e

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ancestord/internal/ancestor"
	"ancestord/internal/engine"
	"ancestord/internal/httpapi"
	"ancestord/pkg/types"
)

// scriptedAdapter replays fixed chunks. With endless set it keeps emitting
// until the context is canceled or the callback refuses a chunk.
type scriptedAdapter struct {
	chunks   []string
	delay    time.Duration
	endless  bool
	startErr error

	starts    atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	finished  atomic.Int32
}

func (a *scriptedAdapter) Start(context.Context, engine.Params) (engine.Session, error) {
	a.starts.Add(1)
	if a.startErr != nil {
		return nil, a.startErr
	}
	return &scriptedSession{a: a}, nil
}

type scriptedSession struct{ a *scriptedAdapter }

func (s *scriptedSession) Generate(ctx context.Context, _ string, _ engine.Params, onToken func(string) error) (engine.FinalResult, error) {
	a := s.a
	n := a.active.Add(1)
	defer a.active.Add(-1)
	defer a.finished.Add(1)
	for {
		m := a.maxActive.Load()
		if n <= m || a.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	var content string
	for i := 0; a.endless || i < len(a.chunks); i++ {
		chunk := "x"
		if len(a.chunks) > 0 {
			chunk = a.chunks[i%len(a.chunks)]
		}
		if a.delay > 0 {
			select {
			case <-ctx.Done():
				return engine.FinalResult{Content: content}, ctx.Err()
			case <-time.After(a.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return engine.FinalResult{Content: content}, err
		}
		content += chunk
		if err := onToken(chunk); err != nil {
			return engine.FinalResult{Content: content}, err
		}
	}
	return engine.FinalResult{Content: content, FinishReason: "stop"}, nil
}

func (s *scriptedSession) Close() error { return nil }

var errModelMissing = errors.New("model file not found")

type stack struct {
	srv    *httptest.Server
	engine *engine.Engine
}

// newStack wires engine, orchestrator and HTTP API around adapter.
func newStack(t *testing.T, adapter engine.Adapter, mutate func(*engine.Options)) *stack {
	t.Helper()
	opts := engine.Options{
		Backend: "fake",
		Params:  engine.Params{MaxTokens: 180, Temperature: 0.2},
		Logger:  zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	eng := engine.New(adapter, opts)
	svc := ancestor.New(eng, ancestor.Options{Persona: ancestor.DefaultPersona, Logger: zerolog.Nop()})
	srv := httptest.NewServer(httpapi.NewMux(svc, httpapi.Options{Model: types.Model{ID: "fake"}}))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = eng.Close(ctx)
	})
	return &stack{srv: srv, engine: eng}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader([]byte(payload)))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

const userTurn = `{"messages":[{"role":"user","content":"What does the baobab teach us?"}]}`

// parallel runs fn n times concurrently and waits for all of them.
func parallel(n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fn(i)
		}(i)
	}
	wg.Wait()
}
