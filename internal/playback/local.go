package playback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/voicebus/internal/config"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
)

// LocalProvider synthesizes with an on-device binary that reads text on stdin
// and writes a wav file.
type LocalProvider struct {
	bin        string
	model      string
	outputPath string
}

// NewLocalProvider builds the on-device provider from configuration.
func NewLocalProvider(cfg config.LocalProviderConfig) *LocalProvider {
	return &LocalProvider{
		bin:        cfg.Bin,
		model:      cfg.Model,
		outputPath: cfg.OutputPath,
	}
}

// Name implements Provider.
func (p *LocalProvider) Name() string { return ProviderLocal }

// Synthesize implements Provider.
func (p *LocalProvider) Synthesize(ctx context.Context, text string) (string, error) {
	if p.model == "" {
		return "", verrors.ProviderFailed(ProviderLocal,
			fmt.Errorf("no voice model configured"))
	}
	if err := os.MkdirAll(filepath.Dir(p.outputPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.bin,
		"--model", p.model, "--output_file", p.outputPath)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", verrors.ProviderFailed(ProviderLocal,
			fmt.Errorf("%s: %w (%s)", p.bin, err, strings.TrimSpace(string(out))))
	}
	return p.outputPath, nil
}
