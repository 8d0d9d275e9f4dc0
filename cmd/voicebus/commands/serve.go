package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/voicebus/internal/broker"
	"git.home.luguber.info/inful/voicebus/internal/config"
	"git.home.luguber.info/inful/voicebus/internal/eventlog"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/metrics"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
	"git.home.luguber.info/inful/voicebus/internal/watchdog"
)

// ServeCmd implements the 'serve' command: the broker process with both
// ingress transports and the in-process watchdog.
type ServeCmd struct {
	NoWatchdog bool `help:"Disable the in-process session watchdog"`
	NoMetrics  bool `help:"Disable the Prometheus /metrics endpoint"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var (
		rec      metrics.Recorder = metrics.NoopRecorder{}
		registry *prom.Registry
	)
	if !s.NoMetrics {
		registry = prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(registry)
	}

	opts := []broker.Option{broker.WithRecorder(rec)}
	if cfg.EventLog.Enabled {
		opts = append(opts,
			broker.WithEventLog(eventlog.NewClient("http://"+cfg.EventLog.Addr())))
	}
	var mirror *broker.MirrorPublisher
	if cfg.Mirror.Enabled {
		mirror, err = broker.NewMirrorPublisher(cfg.Mirror.URL, cfg.Mirror.Subject)
		if err != nil {
			return fmt.Errorf("connect mirror: %w", err)
		}
		defer mirror.Close()
		opts = append(opts, broker.WithMirror(mirror))
	}

	bus := broker.New(cfg, opts...)

	httpSrv := broker.NewHTTPServer(cfg.Broker.Addr(), bus, rec, registry)
	if err := httpSrv.Start(ctx); err != nil {
		return err
	}
	defer stopWithTimeout("http server", httpSrv.Stop)

	sockSrv := broker.NewSocketServer(cfg.Broker.SocketPath, bus)
	if err := sockSrv.Start(ctx); err != nil {
		return err
	}
	defer stopWithTimeout("socket server", sockSrv.Stop)

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	if !s.NoWatchdog {
		wd := watchdog.New(bus, cfg.Watchdog.Source,
			time.Duration(cfg.Watchdog.TickMS)*time.Millisecond)
		if err := wd.Schedule(sched); err != nil {
			return err
		}
	}
	sched.Start()
	defer stopWithTimeout("scheduler", sched.Stop)

	watcher, err := config.NewWatcher(root.Config, func(next *config.Config) {
		bus.ApplyConfig(next)
	})
	if err != nil {
		slog.Warn("Config watcher unavailable", logfields.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Config watcher failed to start", logfields.Error(err))
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	slog.Info("Broker running",
		slog.String("addr", cfg.Broker.Addr()),
		slog.String("socket", cfg.Broker.SocketPath),
		slog.Bool("watchdog", !s.NoWatchdog))

	<-ctx.Done()
	slog.Info("Shutdown signal received")
	return nil
}

// stopWithTimeout runs a Stop func with the shared shutdown deadline.
func stopWithTimeout(name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		slog.Warn("Shutdown incomplete",
			slog.String("component", name), logfields.Error(err))
	}
}
