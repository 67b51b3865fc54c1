package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// CLIConfig configures the llama-cli backend.
type CLIConfig struct {
	Bin       string
	ModelPath string
	ExtraArgs []string
	// KillGrace is how long a terminated llama-cli may take to exit before it
	// is killed.
	KillGrace time.Duration
}

// llamaCLIAdapter runs one llama-cli process per generation and reads its
// stdout as it is produced.
type llamaCLIAdapter struct {
	cfg CLIConfig
	log zerolog.Logger
	pub EventPublisher
}

// NewLlamaCLIAdapter constructs the default backend.
func NewLlamaCLIAdapter(cfg CLIConfig, log zerolog.Logger, pub EventPublisher) Adapter {
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = 2 * time.Second
	}
	return &llamaCLIAdapter{cfg: cfg, log: log.With().Str("adapter", "llama_cli").Logger(), pub: publisherOrNoop(pub)}
}

type llamaCLISession struct {
	a         *llamaCLIAdapter
	bin       string
	modelPath string
}

// Start only validates that the binary and model are present; the model is
// loaded by each llama-cli run.
func (a *llamaCLIAdapter) Start(_ context.Context, _ Params) (Session, error) {
	bin, err := resolveBinary("llama-cli", a.cfg.Bin)
	if err != nil {
		return nil, err
	}
	model, err := checkModelFile(a.cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("bin", bin).Str("model", model).Msg("llama-cli backend ready")
	return &llamaCLISession{a: a, bin: bin, modelPath: model}, nil
}

func (s *llamaCLISession) args(prompt string, p Params) []string {
	n := p.MaxTokens
	if n <= 0 {
		n = 1
	}
	args := []string{
		"-m", s.modelPath,
		"-p", prompt,
		"-n", strconv.Itoa(n),
		"--temp", formatFloat(p.Temperature),
	}
	if p.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(p.Threads))
	}
	if p.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(p.CtxSize))
	}
	if p.BatchSize > 0 {
		args = append(args, "-b", strconv.Itoa(p.BatchSize))
	}
	if p.TopK > 0 {
		args = append(args, "--top-k", strconv.Itoa(p.TopK))
	}
	if p.TopP > 0 {
		args = append(args, "--top-p", formatFloat(p.TopP))
	}
	if p.RepeatPenalty > 0 {
		args = append(args, "--repeat-penalty", formatFloat(p.RepeatPenalty))
	}
	if p.Seed != 0 {
		args = append(args, "-s", strconv.Itoa(p.Seed))
	}
	return append(args, s.a.cfg.ExtraArgs...)
}

func (s *llamaCLISession) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.bin, s.args(prompt, params)...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = s.a.cfg.KillGrace
	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return FinalResult{}, err
	}
	if err := cmd.Start(); err != nil {
		return FinalResult{}, ErrDependencyUnavailable(fmt.Sprintf("start llama-cli: %v", err))
	}
	pid := cmd.Process.Pid
	s.a.log.Debug().Int("pid", pid).Int("prompt_bytes", len(prompt)).Msg("llama-cli started")
	s.a.pub.Publish(Event{Name: "process_start", Backend: "cli", Fields: map[string]any{"pid": pid}})

	waited := false
	defer func() {
		// onToken panicked: do not leave the process behind
		if !waited {
			cancel()
			_ = cmd.Wait()
		}
	}()

	var out strings.Builder
	var cbErr error
	buf := make([]byte, 4096)
	for {
		n, rerr := stdout.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			out.WriteString(chunk)
			if cbErr = onToken(chunk); cbErr != nil {
				break
			}
		}
		if rerr != nil {
			break
		}
	}
	if cbErr != nil {
		cancel()
	}
	werr := cmd.Wait()
	waited = true
	s.a.pub.Publish(Event{Name: "process_exit", Backend: "cli", Fields: map[string]any{"pid": pid}})

	final := FinalResult{Content: out.String()}
	switch {
	case cbErr != nil:
		final.FinishReason = "abandoned"
		return final, cbErr
	case ctx.Err() != nil:
		final.FinishReason = "canceled"
		return final, ctx.Err()
	case werr != nil:
		s.a.log.Warn().Int("pid", pid).Err(werr).Str("stderr_tail", stderr.String()).Msg("llama-cli failed")
		return final, fmt.Errorf("llama-cli exited: %w; stderr tail: %s", werr, stderr.String())
	}
	final.FinishReason = "stop"
	return final, nil
}

// Close is a no-op: nothing outlives a generation.
func (s *llamaCLISession) Close() error { return nil }
