package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime parameters for the service. Defaults fills every field;
// a config file, the environment and flags override in that order.
type Config struct {
	Addr    string `json:"addr" yaml:"addr" toml:"addr" validate:"required"`
	Backend string `json:"backend" yaml:"backend" toml:"backend" validate:"oneof=cli server llama"`
	// Persona is the prompt preamble; empty selects the built-in one and
	// "none" disables it.
	Persona string `json:"persona" yaml:"persona" toml:"persona"`

	ModelsDir         string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	ModelFile         string   `json:"model_file" yaml:"model_file" toml:"model_file"`
	LlamaCLI          string   `json:"llama_cli" yaml:"llama_cli" toml:"llama_cli"`
	LlamaServer       string   `json:"llama_server" yaml:"llama_server" toml:"llama_server"`
	LlamaServerURL    string   `json:"llama_server_url" yaml:"llama_server_url" toml:"llama_server_url"`
	LlamaServerAPIKey string   `json:"llama_server_api_key" yaml:"llama_server_api_key" toml:"llama_server_api_key"`
	LlamaExtraArgs    []string `json:"llama_extra_args" yaml:"llama_extra_args" toml:"llama_extra_args"`

	// LlamaServerHost is the bind address for a spawned llama-server.
	LlamaServerHost string `json:"llama_server_host" yaml:"llama_server_host" toml:"llama_server_host"`
	// ReadyTimeoutSeconds bounds the wait for a spawned llama-server to answer.
	ReadyTimeoutSeconds int `json:"ready_timeout_seconds" yaml:"ready_timeout_seconds" toml:"ready_timeout_seconds" validate:"gte=0"`
	// StopGraceSeconds is the delay between SIGTERM and kill for llama processes.
	StopGraceSeconds int `json:"stop_grace_seconds" yaml:"stop_grace_seconds" toml:"stop_grace_seconds" validate:"gte=0"`

	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" validate:"gt=0"`
	Temperature    float64 `json:"temperature" yaml:"temperature" toml:"temperature" validate:"gte=0,lte=2"`
	Threads        int     `json:"threads" yaml:"threads" toml:"threads" validate:"gte=0"`
	CtxSize        int     `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size" validate:"gte=0"`
	BatchSize      int     `json:"batch_size" yaml:"batch_size" toml:"batch_size" validate:"gte=0"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" validate:"gte=0"`

	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`
	HTTP    HTTPConfig    `json:"http" yaml:"http" toml:"http"`
	TTS     TTSConfig     `json:"tts" yaml:"tts" toml:"tts"`
	Breaker BreakerConfig `json:"breaker" yaml:"breaker" toml:"breaker"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `json:"format" yaml:"format" toml:"format" validate:"omitempty,oneof=json console"`
}

type HTTPConfig struct {
	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	RateLimitPerMin int      `json:"rate_limit_per_min" yaml:"rate_limit_per_min" toml:"rate_limit_per_min" validate:"gte=0"`
	MaxBodyBytes    int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" validate:"gt=0"`
}

type TTSConfig struct {
	Backend   string   `json:"backend" yaml:"backend" toml:"backend" validate:"omitempty,oneof=none google command"`
	OutputDir string   `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	Format    string   `json:"format" yaml:"format" toml:"format"`
	Language  string   `json:"language" yaml:"language" toml:"language"`
	Voice     string   `json:"voice" yaml:"voice" toml:"voice"`
	Command   string   `json:"command" yaml:"command" toml:"command"`
	Args      []string `json:"args" yaml:"args" toml:"args"`
}

type BreakerConfig struct {
	Failures    int `json:"failures" yaml:"failures" toml:"failures" validate:"gte=0"`
	OpenSeconds int `json:"open_seconds" yaml:"open_seconds" toml:"open_seconds" validate:"gte=0"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:                ":8000",
		Backend:             "cli",
		ModelsDir:           "./models",
		ModelFile:           "capybarahermes-2.5-mistral-7b.Q3_K_S.gguf",
		LlamaCLI:            "./llama.cpp/build/bin/llama-cli",
		LlamaServer:         "./llama.cpp/build/bin/llama-server",
		LlamaExtraArgs:      []string{"--no-display-prompt"},
		LlamaServerHost:     "127.0.0.1",
		ReadyTimeoutSeconds: 120,
		StopGraceSeconds:    2,
		MaxTokens:           180,
		Temperature:         0.2,
		Threads:             max(1, runtime.NumCPU()-1),
		CtxSize:             2048,
		BatchSize:           512,
		Log:                 LogConfig{Level: "info", Format: "json"},
		HTTP: HTTPConfig{
			CORSOrigins:  []string{"https://adinkramedia.com", "http://localhost:5173", "http://127.0.0.1:5173"},
			MaxBodyBytes: 1 << 20,
		},
		TTS:     TTSConfig{Backend: "none", OutputDir: "tts_output", Format: "mp3", Language: "en-US"},
		Breaker: BreakerConfig{Failures: 5, OpenSeconds: 30},
	}
}

var validate = validator.New()

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
