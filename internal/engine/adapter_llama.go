//go:build llama

package engine

import (
	"context"
	"errors"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"
)

// llamaBuilt indicates this binary was compiled with in-process llama support.
const llamaBuilt = true

// llamaAdapter loads the model into this process through go-llama.cpp.
type llamaAdapter struct {
	modelPath string
	log       zerolog.Logger
}

func NewLlamaAdapter(modelPath string, log zerolog.Logger) Adapter {
	return &llamaAdapter{modelPath: modelPath, log: log.With().Str("adapter", "llama").Logger()}
}

// llamaSession owns the loaded model.
type llamaSession struct {
	model   *llama.LLama
	threads int
}

func (a *llamaAdapter) Start(_ context.Context, params Params) (Session, error) {
	path, err := checkModelFile(a.modelPath)
	if err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{}
	if params.CtxSize > 0 {
		mo = append(mo, llama.SetContext(params.CtxSize))
	}
	if params.BatchSize > 0 {
		mo = append(mo, llama.SetNBatch(params.BatchSize))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("model", path).Int("ctx", params.CtxSize).Msg("model loaded in-process")
	return &llamaSession{model: m, threads: params.Threads}, nil
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error) {
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}

	var cbErr error
	s.model.SetTokenCallback(func(tok string) bool {
		if ctx.Err() != nil {
			return false
		}
		if err := onToken(tok); err != nil {
			cbErr = err
			return false
		}
		return true
	})

	text, err := s.model.Predict(prompt, mapParamsToPredictOptions(params, s.threads)...)
	switch {
	case cbErr != nil:
		return FinalResult{Content: text, FinishReason: "abandoned"}, cbErr
	case ctx.Err() != nil:
		return FinalResult{Content: text, FinishReason: "canceled"}, ctx.Err()
	case err != nil:
		return FinalResult{}, err
	}
	return FinalResult{Content: text, FinishReason: "stop"}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapParamsToPredictOptions converts generation params into go-llama.cpp options.
func mapParamsToPredictOptions(p Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.MaxTokens)),
		llama.SetThreads(max(1, zn(p.Threads, threads))),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
