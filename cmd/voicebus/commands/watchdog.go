package commands

import (
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/voicebus/internal/busclient"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
	"git.home.luguber.info/inful/voicebus/internal/watchdog"
)

// WatchdogCmd implements the 'watchdog' command: the expiry sweep as its own
// process, talking to a remote broker over HTTP.
type WatchdogCmd struct {
	Broker string `help:"Broker base URL (default: from config)"`
}

func (w *WatchdogCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseURL := w.Broker
	if baseURL == "" {
		baseURL = brokerURL(cfg)
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := busclient.New(baseURL, cfg.Broker.AuthToken)
	bus := busclient.NewRemoteBus(client)
	wd := watchdog.New(bus, cfg.Watchdog.Source,
		time.Duration(cfg.Watchdog.TickMS)*time.Millisecond)

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	if err := wd.Schedule(sched); err != nil {
		return err
	}

	pinger := busclient.NewPinger(client, "watchdog")
	if err := pinger.Schedule(sched,
		time.Duration(cfg.Health.PingIntervalSec)*time.Second); err != nil {
		return err
	}

	sched.Start()
	defer stopWithTimeout("scheduler", sched.Stop)

	slog.Info("Watchdog running",
		slog.String("broker", baseURL),
		slog.Int("tick_ms", cfg.Watchdog.TickMS))

	<-ctx.Done()
	slog.Info("Shutdown signal received")
	return nil
}
