package engine

import "context"

// Adapter abstracts the model runtime. Start is expensive (it may load a
// multi-gigabyte model) and the Engine calls it at most once per successful
// initialization.
type Adapter interface {
	// Start prepares the model resource using load-time parameters
	// (threads, context size, batch size).
	Start(ctx context.Context, params Params) (Session, error)
}

// Session is a live handle on the model resource.
type Session interface {
	// Generate streams raw output chunks for the prompt to onToken.
	// Implementations must return promptly when ctx is canceled or when
	// onToken returns an error, and must hand that error back.
	Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (FinalResult, error)
	// Close releases the resource.
	Close() error
}

// Params captures generation parameters passed to the adapter.
type Params struct {
	MaxTokens     int
	Temperature   float32
	Threads       int
	CtxSize       int
	BatchSize     int
	TopK          int
	TopP          float32
	RepeatPenalty float32
	Seed          int
	Stop          []string
}

// withDefaults fills zero fields from def.
func (p Params) withDefaults(def Params) Params {
	if p.MaxTokens <= 0 {
		p.MaxTokens = def.MaxTokens
	}
	if p.Temperature <= 0 {
		p.Temperature = def.Temperature
	}
	if p.Threads <= 0 {
		p.Threads = def.Threads
	}
	if p.CtxSize <= 0 {
		p.CtxSize = def.CtxSize
	}
	if p.BatchSize <= 0 {
		p.BatchSize = def.BatchSize
	}
	if p.TopK <= 0 {
		p.TopK = def.TopK
	}
	if p.TopP <= 0 {
		p.TopP = def.TopP
	}
	if p.RepeatPenalty <= 0 {
		p.RepeatPenalty = def.RepeatPenalty
	}
	if p.Seed == 0 {
		p.Seed = def.Seed
	}
	if len(p.Stop) == 0 {
		p.Stop = def.Stop
	}
	return p
}

// FinalResult summarizes a finished generation.
type FinalResult struct {
	Content      string
	FinishReason string
}
