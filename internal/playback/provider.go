package playback

import "context"

// Provider turns text into an audio file on disk.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string) (audioPath string, err error)
}
