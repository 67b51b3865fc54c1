package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by NewAdapter.
const (
	BackendCLI    = "cli"
	BackendServer = "server"
	BackendLlama  = "llama"
)

// AdapterConfig carries everything a backend may need. Fields irrelevant to
// the chosen backend are ignored.
type AdapterConfig struct {
	Backend      string
	ModelPath    string
	LlamaCLI     string
	LlamaServer  string
	ServerURL    string
	ServerAPIKey string
	ServerHost   string
	ExtraArgs    []string
	ReadyTimeout time.Duration
	KillGrace    time.Duration
}

// NewAdapter selects the backend named in cfg.Backend.
func NewAdapter(cfg AdapterConfig, log zerolog.Logger, pub EventPublisher) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendCLI:
		return NewLlamaCLIAdapter(CLIConfig{
			Bin:       cfg.LlamaCLI,
			ModelPath: cfg.ModelPath,
			ExtraArgs: cfg.ExtraArgs,
			KillGrace: cfg.KillGrace,
		}, log, pub), nil
	case BackendServer:
		return NewLlamaServerAdapter(ServerConfig{
			URL:          cfg.ServerURL,
			APIKey:       cfg.ServerAPIKey,
			Bin:          cfg.LlamaServer,
			ModelPath:    cfg.ModelPath,
			Host:         cfg.ServerHost,
			ExtraArgs:    cfg.ExtraArgs,
			ReadyTimeout: cfg.ReadyTimeout,
			StopGrace:    cfg.KillGrace,
		}, log, pub), nil
	case BackendLlama:
		if !llamaBuilt {
			log.Warn().Msg("backend llama selected but binary built without the 'llama' tag; generations will return the unavailable notice")
		}
		return NewLlamaAdapter(cfg.ModelPath, log), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want cli, server or llama)", cfg.Backend)
	}
}
