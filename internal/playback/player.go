package playback

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/voicebus/internal/logfields"
)

// Player spawns an external process to play an audio file and can kill it
// mid-playback for the stop protocol.
type Player struct {
	cmdTemplate string

	mu      sync.Mutex
	current *exec.Cmd
}

// NewPlayer creates a player. cmdTemplate is a shell-free command line where
// "{file}" is replaced by the audio path; empty means `aplay {file}`.
func NewPlayer(cmdTemplate string) *Player {
	if cmdTemplate == "" {
		cmdTemplate = "aplay {file}"
	}
	return &Player{cmdTemplate: cmdTemplate}
}

// Play blocks until the player process exits or is stopped. A kill-induced
// exit is reported as an error; the caller treats it as an interrupted, not
// failed, playback.
func (p *Player) Play(ctx context.Context, audioPath string) error {
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return fmt.Errorf("resolve audio path: %w", err)
	}

	parts := strings.Fields(strings.ReplaceAll(p.cmdTemplate, "{file}", abs))
	if len(parts) == 0 {
		return fmt.Errorf("empty play command")
	}
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	p.mu.Lock()
	if p.current != nil {
		p.mu.Unlock()
		return fmt.Errorf("playback already in progress")
	}
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("start player: %w", err)
	}
	p.current = cmd
	p.mu.Unlock()

	err = cmd.Wait()

	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return err
}

// Stop kills any in-flight player process. Best-effort: the kill races
// against natural completion and both outcomes are fine.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.Process == nil {
		return
	}
	slog.Info("Killing in-flight playback")
	if err := p.current.Process.Kill(); err != nil {
		slog.Debug("Playback kill failed", logfields.Error(err))
	}
}
