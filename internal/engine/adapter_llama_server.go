package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// ServerConfig configures the llama-server backend. When URL is set the
// adapter attaches to a running server; otherwise it spawns Bin on a free
// local port.
type ServerConfig struct {
	URL          string
	APIKey       string
	Bin          string
	ModelPath    string
	Host         string
	ExtraArgs    []string
	ReadyTimeout time.Duration
	StopGrace    time.Duration
}

// llamaServerAdapter drives llama.cpp's HTTP server and streams
// OpenAI-compatible completions from it.
type llamaServerAdapter struct {
	cfg        ServerConfig
	httpClient *http.Client
	log        zerolog.Logger
	pub        EventPublisher
}

// NewLlamaServerAdapter constructs a server-backed adapter.
func NewLlamaServerAdapter(cfg ServerConfig, log zerolog.Logger, pub EventPublisher) Adapter {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 120 * time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 2 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	}
	// Timeout=0: every request carries a context deadline instead.
	return &llamaServerAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Transport: tr, Timeout: 0},
		log:        log.With().Str("adapter", "llama_server").Logger(),
		pub:        publisherOrNoop(pub),
	}
}

// llamaServerSession is an attached or spawned llama-server.
type llamaServerSession struct {
	a       *llamaServerAdapter
	baseURL string

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
}

// isHealthy checks if the llama-server at baseURL responds OK to /v1/models.
func (a *llamaServerAdapter) isHealthy(ctx context.Context, baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (a *llamaServerAdapter) Start(ctx context.Context, params Params) (Session, error) {
	if u := strings.TrimRight(strings.TrimSpace(a.cfg.URL), "/"); u != "" {
		if !a.isHealthy(ctx, u, 5*time.Second) {
			return nil, ErrDependencyUnavailable("llama-server not reachable at " + u)
		}
		a.log.Info().Str("url", u).Msg("attached to llama-server")
		return &llamaServerSession{a: a, baseURL: u}, nil
	}
	return a.spawn(ctx, params)
}

// spawn starts llama-server for the configured model and waits until it
// answers health checks, failing fast if the process exits first.
func (a *llamaServerAdapter) spawn(ctx context.Context, params Params) (Session, error) {
	bin, err := resolveBinary("llama-server", a.cfg.Bin)
	if err != nil {
		return nil, err
	}
	model, err := checkModelFile(a.cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	host := a.cfg.Host
	port, err := pickFreePort(host)
	if err != nil {
		return nil, fmt.Errorf("pick port: %w", err)
	}
	baseURL := "http://" + net.JoinHostPort(host, strconv.Itoa(port))

	args := []string{"-m", model, "--host", host, "--port", strconv.Itoa(port)}
	if params.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(params.CtxSize))
	}
	if params.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(params.Threads))
	}
	if params.BatchSize > 0 {
		args = append(args, "-b", strconv.Itoa(params.BatchSize))
	}
	args = append(args, a.cfg.ExtraArgs...)

	cmd := exec.Command(bin, args...)
	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("start llama-server: %v", err))
	}
	pid := cmd.Process.Pid
	a.log.Info().Int("pid", pid).Str("model", model).Str("url", baseURL).Msg("llama-server spawned")
	a.pub.Publish(Event{Name: "spawn_start", Backend: "server", Fields: map[string]any{"pid": pid, "host": host, "port": port}})

	s := &llamaServerSession{a: a, baseURL: baseURL, cmd: cmd, exited: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		s.waitErr = err
		s.mu.Unlock()
		close(s.exited)
	}()

	deadline := time.NewTimer(a.cfg.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-s.exited:
			s.mu.Lock()
			werr := s.waitErr
			s.mu.Unlock()
			a.pub.Publish(Event{Name: "spawn_exit", Backend: "server", Fields: map[string]any{"pid": pid, "before_ready": true}})
			if werr != nil {
				return nil, fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, stderr.String())
			}
			return nil, fmt.Errorf("llama-server exited before ready: %s", baseURL)
		case <-deadline.C:
			a.pub.Publish(Event{Name: "spawn_timeout", Backend: "server", Fields: map[string]any{"pid": pid}})
			_ = s.Close()
			return nil, fmt.Errorf("llama-server not ready in time: %s", baseURL)
		case <-ctx.Done():
			_ = s.Close()
			return nil, ctx.Err()
		case <-tick.C:
			if a.isHealthy(ctx, baseURL, time.Second) {
				a.log.Info().Int("pid", pid).Str("url", baseURL).Msg("llama-server ready")
				a.pub.Publish(Event{Name: "spawn_ready", Backend: "server", Fields: map[string]any{"pid": pid, "url": baseURL}})
				return s, nil
			}
		}
	}
}

// openAICompletionRequest represents the payload for /v1/completions.
type openAICompletionRequest struct {
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   float32  `json:"temperature"`
	TopP          float32  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Seed          int      `json:"seed,omitempty"`
	Stream        bool     `json:"stream"`
	RepeatPenalty float32  `json:"repeat_penalty,omitempty"`
}

// openAIStreamChoice covers both completion (text) and chat (delta) chunks.
type openAIStreamChoice struct {
	Text  string `json:"text"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Choices []openAIStreamChoice `json:"choices"`
}

func (s *llamaServerSession) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	select {
	case <-s.exited: // nil when attached
		return FinalResult{}, errors.New("llama-server process has exited")
	default:
	}
	payload := openAICompletionRequest{
		Prompt:        prompt,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		Stop:          params.Stop,
		Seed:          params.Seed,
		Stream:        true,
		RepeatPenalty: params.RepeatPenalty,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return FinalResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.a.cfg.APIKey)
	}
	resp, err := s.a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return FinalResult{}, fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}

	// Server-Sent Events: lines beginning with "data: ".
	r := bufio.NewReader(resp.Body)
	var final FinalResult
	var content strings.Builder
	for {
		line, err := r.ReadString('\n')
		if l := strings.TrimSpace(line); strings.HasPrefix(strings.ToLower(l), "data:") {
			data := strings.TrimSpace(l[len("data:"):])
			if data == "[DONE]" {
				break
			}
			var msg openAIStreamResponse
			if jerr := json.Unmarshal([]byte(data), &msg); jerr == nil && len(msg.Choices) > 0 {
				c := msg.Choices[0]
				frag := c.Text
				if frag == "" {
					frag = c.Delta.Content
				}
				if frag != "" {
					content.WriteString(frag)
					if cbErr := onToken(frag); cbErr != nil {
						final.Content = content.String()
						return final, cbErr
					}
				}
				if c.FinishReason != "" {
					final.FinishReason = c.FinishReason
				}
			} else {
				s.a.log.Debug().Str("line", l).Msg("unknown stream line")
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return final, ctx.Err()
			}
			return final, err
		}
	}
	final.Content = content.String()
	return final, nil
}

// Close terminates a spawned llama-server: SIGTERM first, then kill after
// the grace period. Attached servers are left running.
func (s *llamaServerSession) Close() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	select {
	case <-s.exited:
		return nil
	default:
	}
	_ = s.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-s.exited:
	case <-time.After(s.a.cfg.StopGrace):
		_ = s.cmd.Process.Kill()
		<-s.exited
	}
	s.a.pub.Publish(Event{Name: "spawn_stop", Backend: "server", Fields: map[string]any{"pid": s.cmd.Process.Pid}})
	s.a.log.Info().Int("pid", s.cmd.Process.Pid).Msg("llama-server stopped")
	return nil
}
