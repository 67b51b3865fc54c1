package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ancestord/internal/ancestor"
	"ancestord/internal/config"
	"ancestord/internal/engine"
	"ancestord/internal/registry"
	"ancestord/internal/speech"
	"ancestord/pkg/types"
)

// app is the wired service graph shared by serve and ask.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	model  types.Model
	engine *engine.Engine
	synth  speech.Synthesizer
	svc    *ancestor.Service
}

func buildApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	model, err := registry.Resolve(cfg.ModelsDir, cfg.ModelFile)
	if err != nil {
		// the engine reports a missing model on first use; keep serving
		log.Warn().Err(err).Str("models_dir", cfg.ModelsDir).Msg("model not found")
	}

	adapter, err := engine.NewAdapter(adapterConfig(cfg, model.Path), log, engine.LogPublisher{Log: log})
	if err != nil {
		return nil, err
	}
	eng := engine.New(adapter, engine.Options{
		Backend: cfg.Backend,
		Params: engine.Params{
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			Threads:     cfg.Threads,
			CtxSize:     cfg.CtxSize,
			BatchSize:   cfg.BatchSize,
		},
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		Breaker: engine.BreakerConfig{
			Failures: uint32(cfg.Breaker.Failures),
			OpenFor:  time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		},
		Logger:    log,
		Publisher: engine.LogPublisher{Log: log},
	})

	synth, err := speech.New(ctx, speech.Config{
		Backend:   cfg.TTS.Backend,
		OutputDir: cfg.TTS.OutputDir,
		Format:    cfg.TTS.Format,
		Language:  cfg.TTS.Language,
		Voice:     cfg.TTS.Voice,
		Command:   cfg.TTS.Command,
		Args:      cfg.TTS.Args,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}

	opts := ancestor.Options{Persona: ancestor.ResolvePersona(cfg.Persona), Logger: log}
	if synth != nil {
		opts.Synthesizer = synth
	}
	return &app{
		cfg:    cfg,
		log:    log,
		model:  model,
		engine: eng,
		synth:  synth,
		svc:    ancestor.New(eng, opts),
	}, nil
}

// adapterConfig maps the model backend settings onto engine.AdapterConfig.
func adapterConfig(cfg config.Config, modelPath string) engine.AdapterConfig {
	return engine.AdapterConfig{
		Backend:      cfg.Backend,
		ModelPath:    modelPath,
		LlamaCLI:     cfg.LlamaCLI,
		LlamaServer:  cfg.LlamaServer,
		ServerURL:    cfg.LlamaServerURL,
		ServerAPIKey: cfg.LlamaServerAPIKey,
		ServerHost:   cfg.LlamaServerHost,
		ExtraArgs:    cfg.LlamaExtraArgs,
		ReadyTimeout: time.Duration(cfg.ReadyTimeoutSeconds) * time.Second,
		KillGrace:    time.Duration(cfg.StopGraceSeconds) * time.Second,
	}
}

// speechBackend names the active synthesizer for /status.
func (a *app) speechBackend() string {
	if a.synth == nil {
		return speech.BackendNone
	}
	return a.cfg.TTS.Backend
}

// close releases the model session and the speech client.
func (a *app) close(ctx context.Context) {
	if err := a.engine.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("engine close")
	}
	if c, ok := a.synth.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn().Err(err).Msg("speech close")
		}
	}
}
