package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// IsFile reports whether path exists and is not a directory.
func IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Resolve expands '~' in p and, when p is relative, joins it onto base.
// An absolute p is returned cleaned; an empty p stays empty.
func Resolve(base, p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	p, err := ExpandHome(p)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) || base == "" {
		return filepath.Clean(p), nil
	}
	base, err = ExpandHome(base)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, p), nil
}
