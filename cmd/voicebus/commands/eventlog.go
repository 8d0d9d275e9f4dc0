package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/voicebus/internal/eventlog"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
)

// EventlogCmd implements the 'eventlog' command: the durable log service.
type EventlogCmd struct {
	DBPath string `help:"Database file path (default: from config)"`
}

func (e *EventlogCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := e.DBPath
	if dbPath == "" {
		dbPath = cfg.EventLog.DBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, err := eventlog.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srv := eventlog.NewServer(cfg.EventLog.Addr(), store)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer stopWithTimeout("event log server", srv.Stop)

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	if err := eventlog.ScheduleRetention(sched, store, cfg.EventLog.RetentionDays); err != nil {
		return err
	}
	sched.Start()
	defer stopWithTimeout("scheduler", sched.Stop)

	slog.Info("Event log running",
		slog.String("addr", cfg.EventLog.Addr()),
		slog.String("db", dbPath),
		slog.Int("retention_days", cfg.EventLog.RetentionDays))

	<-ctx.Done()
	slog.Info("Shutdown signal received")
	return nil
}
