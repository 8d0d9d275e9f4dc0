package busclient

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
)

// Pinger periodically reports a service's liveness to the broker health map.
type Pinger struct {
	client  *Client
	name    string
	started time.Time
}

// NewPinger creates a pinger for the named service.
func NewPinger(client *Client, name string) *Pinger {
	return &Pinger{client: client, name: name, started: time.Now()}
}

// PingOnce sends one report immediately.
func (p *Pinger) PingOnce(ctx context.Context) {
	uptime := time.Since(p.started).Seconds()
	if err := p.client.ReportHealth(ctx, p.name, "ok", uptime); err != nil {
		slog.Debug("Health ping failed",
			logfields.Service(p.name), logfields.Error(err))
	}
}

// Schedule sends an immediate report, then repeats at the given interval.
// Ping failures are expected while the broker restarts and are never fatal.
func (p *Pinger) Schedule(sched *scheduler.Scheduler, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	p.PingOnce(ctx)

	_, err := sched.ScheduleEvery("health-ping", interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		p.PingOnce(ctx)
	})
	return err
}
