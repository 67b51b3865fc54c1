package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file based on its extension over Defaults.
// Keys absent from the file keep their default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if err := LoadInto(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadInto decodes the file at path over cfg.
func LoadInto(path string, cfg *Config) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	return nil
}
