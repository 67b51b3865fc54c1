package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// CommandTTS runs an external program such as piper or espeak-ng.
type CommandTTS struct {
	bin  string
	args []string
	cfg  Config
	log  zerolog.Logger
}

func NewCommand(cfg Config, log zerolog.Logger) (*CommandTTS, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("tts command is empty")
	}
	bin, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("tts command not found: %w", err)
	}
	return &CommandTTS{bin: bin, args: cfg.Args, cfg: cfg, log: log}, nil
}

func (c *CommandTTS) Synthesize(ctx context.Context, text string) (string, error) {
	path, err := artifactPath(c.cfg.OutputDir, extFor(c.cfg.Format))
	if err != nil {
		return "", err
	}
	args := make([]string, len(c.args))
	for i, a := range c.args {
		a = strings.ReplaceAll(a, "{output}", path)
		args[i] = strings.ReplaceAll(a, "{text}", text)
	}
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("tts command: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		_ = os.Remove(path)
		return "", fmt.Errorf("tts command produced no audio at %s", path)
	}
	c.log.Debug().Str("path", path).Msg("speech synthesized")
	return path, nil
}
