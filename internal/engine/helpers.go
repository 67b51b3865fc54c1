package engine

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"ancestord/internal/common/fsutil"
)

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

// resolveBinary returns an executable path for bin, either as given or from PATH.
func resolveBinary(kind, bin string) (string, error) {
	bin = strings.TrimSpace(bin)
	if bin == "" {
		return "", ErrDependencyUnavailable(kind + " path is empty")
	}
	if expanded, err := fsutil.ExpandHome(bin); err == nil {
		bin = expanded
	}
	if fsutil.IsFile(bin) {
		return bin, nil
	}
	if p, err := exec.LookPath(bin); err == nil {
		return p, nil
	}
	return "", ErrDependencyUnavailable(fmt.Sprintf("%s not found: %s", kind, bin))
}

// checkModelFile verifies the model file exists and is readable.
func checkModelFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrDependencyUnavailable("model path is empty")
	}
	if expanded, err := fsutil.ExpandHome(path); err == nil {
		path = expanded
	}
	f, err := os.Open(path)
	if err != nil {
		return "", ErrDependencyUnavailable(fmt.Sprintf("model file not found: %s", path))
	}
	_ = f.Close()
	if !fsutil.IsFile(path) {
		return "", ErrDependencyUnavailable(fmt.Sprintf("model path is not a file: %s", path))
	}
	return path, nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	_, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(port)
}

func formatFloat(f float32) string { return strconv.FormatFloat(float64(f), 'f', -1, 32) }
