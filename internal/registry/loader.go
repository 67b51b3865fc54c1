// Package registry finds the GGUF model file the engine serves.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ancestord/internal/common/fsutil"
	"ancestord/pkg/types"
)

// ErrNoModels is returned when a directory holds no *.gguf files.
var ErrNoModels = errors.New("no .gguf models found")

// quant matches llama.cpp quantization suffixes such as Q3_K_S, Q4_0, IQ2_XS or F16.
var quant = regexp.MustCompile(`(?i)[.-]((?:I?Q[0-9]+(?:_[A-Z0-9]+)*)|F16|F32|BF16)$`)

// Describe builds a Model from a file path. The file does not need to exist;
// SizeBytes is filled when it does.
func Describe(path string) types.Model {
	file := filepath.Base(path)
	id := strings.TrimSuffix(file, filepath.Ext(file))
	m := types.Model{ID: id, Name: id, Path: path}
	if loc := quant.FindStringSubmatchIndex(id); loc != nil {
		m.Quant = strings.ToUpper(id[loc[2]:loc[3]])
		m.Name = id[:loc[0]]
	}
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		m.SizeBytes = fi.Size()
	}
	return m
}

// LoadDir scans a directory for *.gguf files, sorted by file name.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			continue
		}
		models = append(models, Describe(filepath.Join(abs, e.Name())))
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Path < models[j].Path })
	return models, nil
}

// Resolve picks the model to serve. A configured file is resolved against
// modelsDir and returned even when it does not exist yet, together with an
// error describing the problem; the engine reports it again on first use.
// Without a configured file the first *.gguf in modelsDir is used.
func Resolve(modelsDir, modelFile string) (types.Model, error) {
	if strings.TrimSpace(modelFile) != "" {
		p, err := fsutil.Resolve(modelsDir, modelFile)
		if err != nil {
			return types.Model{}, err
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		m := Describe(p)
		if !fsutil.IsFile(p) {
			return m, fmt.Errorf("model file not found: %s", p)
		}
		return m, nil
	}
	models, err := LoadDir(modelsDir)
	if err != nil {
		return types.Model{}, err
	}
	if len(models) == 0 {
		return types.Model{}, fmt.Errorf("%w in %s", ErrNoModels, modelsDir)
	}
	return models[0], nil
}
