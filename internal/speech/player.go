package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Clip is a playable WAV buffer.
type Clip struct {
	WAV        []byte
	SampleRate int
	Samples    int
}

// Duration is the playing time of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Samples) * time.Second / time.Duration(c.SampleRate)
}

// Player starts playback of a clip.
type Player interface {
	Start(ctx context.Context, clip Clip) (Stream, error)
}

// Stream is a playback in progress. Wait blocks until it ends; Release frees
// whatever resource backs it and is safe to call more than once.
type Stream interface {
	Location() string
	Wait() error
	Release() error
}

// FilePlayer writes the clip to Path. Playback is complete once written.
type FilePlayer struct {
	Path string
}

func (p *FilePlayer) Start(_ context.Context, clip Clip) (Stream, error) {
	if strings.TrimSpace(p.Path) == "" {
		return nil, errors.New("output path is required")
	}
	if err := os.WriteFile(p.Path, clip.WAV, 0o644); err != nil { // #nosec G306 -- audio output is meant to be shared
		return nil, fmt.Errorf("write audio: %w", err)
	}
	return fileStream{path: p.Path}, nil
}

type fileStream struct{ path string }

func (s fileStream) Location() string { return s.path }
func (s fileStream) Wait() error      { return nil }
func (s fileStream) Release() error   { return nil }

// CommandPlayer writes the clip to a temporary file and plays it with an
// external command such as aplay or afplay. The temporary file is removed on
// Release.
type CommandPlayer struct {
	Command string
	Args    []string
	TempDir string
}

// DefaultCommand returns the stock audio player for the current platform, or
// an empty string when none is known.
func DefaultCommand() string {
	switch runtime.GOOS {
	case "linux":
		return "aplay"
	case "darwin":
		return "afplay"
	default:
		return ""
	}
}

func (p *CommandPlayer) Start(ctx context.Context, clip Clip) (Stream, error) {
	command := strings.TrimSpace(p.Command)
	if command == "" {
		command = DefaultCommand()
	}
	if command == "" {
		return nil, fmt.Errorf("no audio player command configured for %s", runtime.GOOS)
	}

	f, err := os.CreateTemp(p.TempDir, "stocklens-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(clip.WAV); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close audio file: %w", err)
	}

	args := append(append([]string{}, p.Args...), path)
	cmd := exec.CommandContext(ctx, command, args...) // #nosec G204 -- player command comes from operator config
	if err := cmd.Start(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("start %s: %w", filepath.Base(command), err)
	}
	return &commandStream{cmd: cmd, path: path}, nil
}

type commandStream struct {
	cmd     *exec.Cmd
	path    string
	release sync.Once
}

func (s *commandStream) Location() string { return s.path }

func (s *commandStream) Wait() error {
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("audio player: %w", err)
	}
	return nil
}

func (s *commandStream) Release() error {
	var err error
	s.release.Do(func() {
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = rmErr
		}
	})
	return err
}
