package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nbackend: server\nmodels_dir: /srv/models\nmax_tokens: 64\ntts:\n  backend: command\n  command: piper\n  args: [\"--output_file\", \"{output}\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Backend != "server" || cfg.ModelsDir != "/srv/models" || cfg.MaxTokens != 64 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.TTS.Backend != "command" || cfg.TTS.Command != "piper" || len(cfg.TTS.Args) != 2 {
		t.Fatalf("unexpected tts cfg: %+v", cfg.TTS)
	}
	// untouched keys keep defaults
	if cfg.Temperature != 0.2 || cfg.CtxSize != 2048 || cfg.TTS.OutputDir != "tts_output" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","model_file":"m.gguf","timeout_seconds":30,"breaker":{"failures":2,"open_seconds":5}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelFile != "m.gguf" || cfg.TimeoutSeconds != 30 || cfg.Breaker.Failures != 2 || cfg.Breaker.OpenSeconds != 5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\ntemperature=0.7\n[http]\ncors_origins=[\"https://example.org\"]\nrate_limit_per_min=30\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.Temperature != 0.7 || cfg.HTTP.RateLimitPerMin != 30 || len(cfg.HTTP.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.HTTP.MaxBodyBytes != 1<<20 {
		t.Fatalf("nested default lost: %+v", cfg.HTTP)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	cases := map[string]string{
		"cfg.txt":   "not supported",
		"bad.yaml":  "addr: :8080\n: broken\n",
		"bad.json":  `{ "addr": ":8080", "models_dir": }`,
		"typo.json": `{ "adress": ":8080" }`,
		"bad.toml":  "addr=:8080\nmodels_dir\n",
	}
	for name, content := range cases {
		if _, err := Load(writeTempFile(t, d, name, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := []func(*Config){
		func(c *Config) { c.Backend = "gpu" },
		func(c *Config) { c.MaxTokens = 0 },
		func(c *Config) { c.Temperature = -1 },
		func(c *Config) { c.TTS.Backend = "coqui" },
		func(c *Config) { c.Log.Format = "xml" },
		func(c *Config) { c.HTTP.MaxBodyBytes = 0 },
	}
	for i, mutate := range bad {
		c := Defaults()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
