package commands

import (
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/voicebus/internal/busclient"
	"git.home.luguber.info/inful/voicebus/internal/playback"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
)

// PlaybackCmd implements the 'playback' command: the coordinator polling the
// broker queues and speaking responses.
type PlaybackCmd struct {
	Broker string `help:"Broker base URL (default: from config)"`
}

func (p *PlaybackCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseURL := p.Broker
	if baseURL == "" {
		baseURL = brokerURL(cfg)
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := busclient.New(baseURL, cfg.Broker.AuthToken)
	local := playback.NewLocalProvider(cfg.Playback.Local)
	remote := playback.NewRemoteProvider(cfg.Playback.Remote, cfg.Playback.Local.OutputPath)
	coord := playback.NewCoordinator(client, cfg.Playback, local, remote)

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	if err := coord.Schedule(sched); err != nil {
		return err
	}

	pinger := busclient.NewPinger(client, "playback")
	if err := pinger.Schedule(sched,
		time.Duration(cfg.Health.PingIntervalSec)*time.Second); err != nil {
		return err
	}

	sched.Start()
	defer stopWithTimeout("scheduler", sched.Stop)

	slog.Info("Playback coordinator running",
		slog.String("broker", baseURL),
		slog.Int("poll_ms", cfg.Playback.PollMS))

	<-ctx.Done()
	slog.Info("Shutdown signal received")
	return nil
}
