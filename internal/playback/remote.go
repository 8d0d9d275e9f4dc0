package playback

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/voicebus/internal/config"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
)

// RemoteProvider synthesizes through a hosted vendor: POST {text, voice_id},
// answer is either raw audio bytes or JSON carrying base64 audio content.
type RemoteProvider struct {
	baseURL    string
	voiceID    string
	apiKey     string
	outputPath string
	http       *http.Client
}

// NewRemoteProvider builds the vendor-backed provider from configuration.
func NewRemoteProvider(cfg config.RemoteProviderConfig, outputPath string) *RemoteProvider {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RemoteProvider{
		baseURL:    cfg.BaseURL,
		voiceID:    cfg.VoiceID,
		apiKey:     cfg.APIKey,
		outputPath: outputPath,
		http:       &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (p *RemoteProvider) Name() string { return ProviderRemote }

// synthesisResponse is the vendor's JSON answer shape when it does not stream
// raw audio.
type synthesisResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize implements Provider.
func (p *RemoteProvider) Synthesize(ctx context.Context, text string) (string, error) {
	if p.baseURL == "" {
		return "", verrors.ProviderFailed(ProviderRemote,
			fmt.Errorf("no base URL configured"))
	}

	body, err := json.Marshal(map[string]any{
		"text":     text,
		"voice_id": p.voiceID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL,
		bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return "", verrors.ProviderFailed(ProviderRemote, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", verrors.ProviderFailed(ProviderRemote,
			fmt.Errorf("vendor answered %d", resp.StatusCode))
	}

	audio, err := p.decodeAudio(resp)
	if err != nil {
		return "", verrors.ProviderFailed(ProviderRemote, err)
	}

	if err := writeAudioFile(p.outputPath, audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return p.outputPath, nil
}

func (p *RemoteProvider) decodeAudio(resp *http.Response) ([]byte, error) {
	if strings.Contains(resp.Header.Get("Content-Type"), "audio") {
		return io.ReadAll(resp.Body)
	}

	var parsed synthesisResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}
	if parsed.AudioContent == "" {
		return nil, fmt.Errorf("response missing audio content")
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}

func writeAudioFile(path string, audio []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, audio, 0o644)
}
