// Package speech reads command responses aloud through a local text-to-speech
// program.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"voicewidget/internal/ports"
)

// Candidates are tried in order when no command is configured.
var Candidates = []string{"say", "espeak-ng", "espeak", "spd-say"}

var ErrUnavailable = errors.New("no speech program available")

// Config selects the speech program.
type Config struct {
	Enabled bool
	// Command overrides candidate detection. Extra fields are passed as
	// arguments before the text.
	Command string
}

// CommandSpeaker speaks by running a program with the text as its last
// argument.
type CommandSpeaker struct {
	cfg         Config
	transformer ports.TextTransformer
	lookPath    func(string) (string, error)

	once     sync.Once
	resolved []string
}

func NewCommandSpeaker(cfg Config, transformer ports.TextTransformer) *CommandSpeaker {
	return &CommandSpeaker{
		cfg:         cfg,
		transformer: transformer,
		lookPath:    exec.LookPath,
	}
}

// Available reports whether speech is enabled and a program was found.
func (s *CommandSpeaker) Available() bool {
	return len(s.argv()) > 0
}

// Program is the resolved speech command line, or nil.
func (s *CommandSpeaker) Program() []string {
	return append([]string(nil), s.argv()...)
}

func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	argv := s.argv()
	if len(argv) == 0 {
		return ErrUnavailable
	}

	text = strings.TrimSpace(text)
	if s.transformer != nil {
		spoken, err := s.transformer.Apply(text)
		if err != nil {
			return fmt.Errorf("apply pronunciation rules: %w", err)
		}
		text = spoken
	}
	if text == "" {
		return nil
	}

	// Text after "--" is never parsed as an option, even when it starts with "-".
	args := append(append([]string(nil), argv[1:]...), "--", text)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("speaking response", slog.String("program", argv[0]), slog.Int("length", len(text)))
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%s failed: %w: %s", argv[0], err, detail)
		}
		return fmt.Errorf("%s failed: %w", argv[0], err)
	}
	return nil
}

func (s *CommandSpeaker) argv() []string {
	s.once.Do(func() {
		s.resolved = s.resolve()
	})
	return s.resolved
}

func (s *CommandSpeaker) resolve() []string {
	if !s.cfg.Enabled {
		return nil
	}

	if fields := strings.Fields(s.cfg.Command); len(fields) > 0 {
		path, err := s.lookPath(fields[0])
		if err != nil {
			logger.Warn("configured speech program not found", slog.String("program", fields[0]))
			return nil
		}
		return append([]string{path}, fields[1:]...)
	}

	for _, candidate := range Candidates {
		if path, err := s.lookPath(candidate); err == nil {
			return []string{path}
		}
	}
	return nil
}
