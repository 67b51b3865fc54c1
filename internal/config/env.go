package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/subosito/gotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := gotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables read through lookup
// (os.LookupEnv in production). Malformed numbers are ignored.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = SplitCSV(v)
		}
	}

	str("ANCESTOR_ADDR", &cfg.Addr)
	str("ANCESTOR_BACKEND", &cfg.Backend)
	if v, ok := lookup("ANCESTOR_PERSONA"); ok {
		cfg.Persona = v
	}
	str("MODELS_DIR", &cfg.ModelsDir)
	str("MODEL_FILE", &cfg.ModelFile)
	str("LLAMA_CLI", &cfg.LlamaCLI)
	str("LLAMA_SERVER", &cfg.LlamaServer)
	str("LLAMA_SERVER_URL", &cfg.LlamaServerURL)
	str("LLAMA_SERVER_API_KEY", &cfg.LlamaServerAPIKey)
	list("LLAMA_EXTRA_ARGS", &cfg.LlamaExtraArgs)
	str("LLAMA_SERVER_HOST", &cfg.LlamaServerHost)
	num("LLAMA_READY_TIMEOUT_SECONDS", &cfg.ReadyTimeoutSeconds)
	num("LLAMA_STOP_GRACE_SECONDS", &cfg.StopGraceSeconds)

	num("MODEL_MAX_TOKENS", &cfg.MaxTokens)
	if v, ok := lookup("MODEL_TEMPERATURE"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.Temperature = f
		}
	}
	num("MODEL_THREADS", &cfg.Threads)
	num("MODEL_N_CTX", &cfg.CtxSize)
	num("MODEL_N_BATCH", &cfg.BatchSize)
	num("MODEL_TIMEOUT_SECONDS", &cfg.TimeoutSeconds)

	str("ANCESTOR_LOG_LEVEL", &cfg.Log.Level)
	str("ANCESTOR_LOG_FORMAT", &cfg.Log.Format)

	list("ANCESTOR_CORS_ORIGINS", &cfg.HTTP.CORSOrigins)
	num("ANCESTOR_RATE_LIMIT_PER_MIN", &cfg.HTTP.RateLimitPerMin)
	if v, ok := lookup("ANCESTOR_MAX_BODY_BYTES"); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.HTTP.MaxBodyBytes = n
		}
	}

	str("TTS_BACKEND", &cfg.TTS.Backend)
	str("TTS_OUTPUT_DIR", &cfg.TTS.OutputDir)
	str("TTS_FORMAT", &cfg.TTS.Format)
	str("TTS_LANGUAGE", &cfg.TTS.Language)
	str("TTS_VOICE", &cfg.TTS.Voice)
	str("TTS_COMMAND", &cfg.TTS.Command)
	list("TTS_ARGS", &cfg.TTS.Args)

	num("BREAKER_FAILURES", &cfg.Breaker.Failures)
	num("BREAKER_OPEN_SECONDS", &cfg.Breaker.OpenSeconds)
}

// SplitCSV splits a comma separated list, trimming blanks and dropping empty
// items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
