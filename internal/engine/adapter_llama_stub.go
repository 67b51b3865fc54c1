//go:build !llama

package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// llamaBuilt is false in builds without the 'llama' tag; the default build
// stays CGO-free.
const llamaBuilt = false

// llamaAdapter refuses to start without in-process llama support.
type llamaAdapter struct{}

func NewLlamaAdapter(_ string, _ zerolog.Logger) Adapter { return llamaAdapter{} }

func (llamaAdapter) Start(context.Context, Params) (Session, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
