package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ancestord/internal/config"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	backend    string
	modelsDir  string
	model      string
	persona    string
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&rootFlags{}) }

// newRootCmdWith builds the command tree bound to f.
func newRootCmdWith(f *rootFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "ancestord",
		Short:         "Ancestor conversational inference over a local llama.cpp model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&f.envFile, "env-file", ".env", "KEY=VALUE file loaded into the environment if present")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error")
	pf.StringVar(&f.logFormat, "log-format", "", "Log format: json|console")
	pf.StringVar(&f.backend, "backend", "", "Inference backend: cli|server|llama")
	pf.StringVar(&f.modelsDir, "models-dir", "", "Directory holding *.gguf model files")
	pf.StringVar(&f.model, "model", "", "Model file, absolute or relative to --models-dir")
	pf.StringVar(&f.persona, "persona", "", "Prompt preamble; 'none' disables it")

	root.AddCommand(newServeCmd(f), newAskCmd(f))
	return root
}

// loadConfig applies defaults, the config file, the env file, the process
// environment and finally the flags the user actually set.
func loadConfig(cmd *cobra.Command, f *rootFlags) (config.Config, error) {
	cfg := config.Defaults()
	if f.configPath != "" {
		if err := config.LoadInto(f.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	config.ApplyEnv(&cfg, os.LookupEnv)

	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("log-level", &cfg.Log.Level, f.logLevel)
	set("log-format", &cfg.Log.Format, f.logFormat)
	set("backend", &cfg.Backend, f.backend)
	set("models-dir", &cfg.ModelsDir, f.modelsDir)
	set("model", &cfg.ModelFile, f.model)
	set("persona", &cfg.Persona, f.persona)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section of the config.
func newLogger(c config.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	if c.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "ancestord").Logger()
}
