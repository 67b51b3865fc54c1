package registry

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func touch(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadDir_FiltersGGUF(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"b.gguf", "a.GGUF", "not-model.txt", "model.bin"} {
		touch(t, dir, f, 0)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.gguf"), 0o755); err != nil {
		t.Fatal(err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 2 || models[0].ID != "a" || models[1].ID != "b" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestLoadDir_ExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	if err := os.Mkdir(filepath.Join(home, "models"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(home, "models"), "x.gguf", 0)
	models, err := LoadDir("~/models")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "x" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		file, name, quant string
	}{
		{"capybarahermes-2.5-mistral-7b.Q3_K_S.gguf", "capybarahermes-2.5-mistral-7b", "Q3_K_S"},
		{"tinyllama-1.1b-chat.q4_0.gguf", "tinyllama-1.1b-chat", "Q4_0"},
		{"phi-2-F16.gguf", "phi-2", "F16"},
		{"plain.gguf", "plain", ""},
	}
	for _, c := range cases {
		m := Describe(touch(t, dir, c.file, 3))
		if m.Name != c.name || m.Quant != c.quant || m.SizeBytes != 3 {
			t.Fatalf("%s: got %+v", c.file, m)
		}
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "m2.gguf", 1)
	touch(t, dir, "m1.gguf", 1)

	m, err := Resolve(dir, "")
	if err != nil || m.ID != "m1" {
		t.Fatalf("scan pick: %+v err=%v", m, err)
	}
	m, err = Resolve(dir, "m2.gguf")
	if err != nil || m.Path != filepath.Join(dir, "m2.gguf") {
		t.Fatalf("explicit: %+v err=%v", m, err)
	}
	m, err = Resolve(dir, "missing.gguf")
	if err == nil || m.Path != filepath.Join(dir, "missing.gguf") {
		t.Fatalf("missing file should report error but keep path: %+v err=%v", m, err)
	}
	if _, err := Resolve(t.TempDir(), ""); !errors.Is(err, ErrNoModels) {
		t.Fatalf("expected ErrNoModels, got %v", err)
	}
}
