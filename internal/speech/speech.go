// Package speech renders Ancestor's replies as audio files.
package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backend names.
const (
	BackendNone    = "none"
	BackendGoogle  = "google"
	BackendCommand = "command"
)

// Synthesizer renders text as speech and returns the path of the audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	OutputDir string
	// Format is the audio container: mp3, wav or ogg.
	Format   string
	Language string
	Voice    string
	// Command and Args run an external TTS program. Args may contain the
	// {output} and {text} placeholders; the text is also written to stdin.
	Command string
	Args    []string
}

// New builds the configured backend. BackendNone (or empty) returns a nil
// Synthesizer and no error.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (Synthesizer, error) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "tts_output"
	}
	log = log.With().Str("component", "speech").Str("backend", cfg.Backend).Logger()
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendGoogle:
		return NewGoogle(ctx, cfg, log)
	case BackendCommand:
		return NewCommand(cfg, log)
	default:
		return nil, fmt.Errorf("unknown tts backend %q (want none, google or command)", cfg.Backend)
	}
}

// artifactPath returns a fresh file path in dir, creating dir if needed.
func artifactPath(dir, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create tts output dir: %w", err)
	}
	return filepath.Join(dir, uuid.NewString()+"."+ext), nil
}

func extFor(format string) string {
	switch strings.ToLower(format) {
	case "wav", "linear16":
		return "wav"
	case "ogg", "opus":
		return "ogg"
	default:
		return "mp3"
	}
}
