// Package ancestor is the public contract of the service: it turns a question
// or a conversation into Ancestor's reply, blocking or streamed, with optional
// speech.
package ancestor

import (
	"context"
	"iter"
	"strings"

	"github.com/rs/zerolog"

	"ancestord/internal/conversation"
	"ancestord/internal/engine"
	"ancestord/pkg/types"
)

const (
	SentinelUnavailable = engine.SentinelUnavailable
	SentinelNoResponse  = "Ancestor has no response yet."
)

// Engine is the inference surface the service needs.
type Engine interface {
	Complete(ctx context.Context, prompt string, params engine.Params) engine.Outcome
	Stream(ctx context.Context, prompt string, params engine.Params) iter.Seq[string]
	Warmup(ctx context.Context) error
	Ready() bool
	Status() types.EngineStatus
}

// Synthesizer renders text as speech and returns a handle (a file path) to the
// produced audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Request is one question to Ancestor. When Messages is non-empty the latest
// user message is the question and Question is ignored.
type Request struct {
	Question  string
	Messages  []conversation.Message
	WantAudio bool
	// MaxTokens overrides the configured default when > 0.
	MaxTokens int
}

// Result is Ancestor's reply. Audio is empty when no speech was produced.
type Result struct {
	Text  string
	Audio string
}

type Options struct {
	Persona     string
	Synthesizer Synthesizer
	Logger      zerolog.Logger
}

type Service struct {
	engine  Engine
	synth   Synthesizer
	persona string
	log     zerolog.Logger
}

func New(e Engine, opts Options) *Service {
	return &Service{
		engine:  e,
		synth:   opts.Synthesizer,
		persona: opts.Persona,
		log:     opts.Logger.With().Str("component", "ancestor").Logger(),
	}
}

// Ask returns the whole reply. The only error is conversation.ErrNoUserMessage;
// model trouble is answered with sentinel text.
func (s *Service) Ask(ctx context.Context, req Request) (Result, error) {
	prompt, err := s.prompt(req)
	if err != nil {
		return Result{}, err
	}
	out := s.engine.Complete(ctx, prompt, engine.Params{MaxTokens: req.MaxTokens})
	if out.Fallback {
		s.log.Warn().Err(out.Err).Msg("answering with unavailable notice")
	}
	res := Result{Text: out.Text}
	if res.Text == "" {
		res.Text = SentinelNoResponse
	}
	if req.WantAudio && s.synth != nil {
		res.Audio = s.synthesize(ctx, res.Text)
	}
	return res, nil
}

// AskStream resolves the prompt up front, so a bad request fails before
// anything is streamed, and returns the reply as growing snapshots. A reply
// that produces nothing yields SentinelNoResponse once.
func (s *Service) AskStream(ctx context.Context, req Request) (iter.Seq[string], error) {
	prompt, err := s.prompt(req)
	if err != nil {
		return nil, err
	}
	upstream := s.engine.Stream(ctx, prompt, engine.Params{MaxTokens: req.MaxTokens})
	return func(yield func(string) bool) {
		empty := true
		for snap := range upstream {
			empty = false
			s.log.Debug().Str("snapshot", snap).Msg("stream fragment")
			if !yield(snap) {
				return
			}
		}
		if empty {
			yield(SentinelNoResponse)
		}
	}, nil
}

func (s *Service) prompt(req Request) (string, error) {
	q := req.Question
	if len(req.Messages) > 0 {
		var err error
		if q, err = conversation.LatestUserMessage(req.Messages); err != nil {
			return "", err
		}
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return "", conversation.ErrNoUserMessage
	}
	return BuildPrompt(s.persona, q), nil
}

// synthesize never fails the request: errors and panics leave Audio empty.
func (s *Service) synthesize(ctx context.Context, text string) (path string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("speech synthesis panicked")
			path = ""
		}
	}()
	p, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("speech synthesis failed")
		return ""
	}
	return p
}

func (s *Service) Warmup(ctx context.Context) error { return s.engine.Warmup(ctx) }
func (s *Service) Ready() bool                      { return s.engine.Ready() }
func (s *Service) Status() types.EngineStatus       { return s.engine.Status() }
