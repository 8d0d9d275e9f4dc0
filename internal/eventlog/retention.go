package eventlog

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
)

// retentionInterval is how often expired events are swept.
const retentionInterval = time.Hour

// ScheduleRetention registers the periodic cleanup of events older than the
// retention window. retentionDays <= 0 disables cleanup entirely.
func ScheduleRetention(sched *scheduler.Scheduler, store *Store, retentionDays int) error {
	if retentionDays <= 0 {
		slog.Info("Event retention disabled")
		return nil
	}

	_, err := sched.ScheduleEvery("event-retention", retentionInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		deleted, err := store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			slog.Error("Event retention sweep failed", logfields.Error(err))
			return
		}
		if deleted > 0 {
			slog.Info("Event retention sweep",
				slog.Int64("deleted", deleted),
				slog.Time("cutoff", cutoff))
		}
	})
	return err
}
