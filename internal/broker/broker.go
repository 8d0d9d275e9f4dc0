// Package broker implements the state-bus service boundary: one semantic
// ingestion path shared by the HTTP API and the unix-socket transport, backed
// by the stores in internal/statebus.
package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/voicebus/internal/config"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/metrics"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// EventSink receives copies of accepted state submissions. Implementations
// are best-effort: the broker never lets a sink failure reach the caller.
type EventSink interface {
	SendEvent(ctx context.Context, eventType string, payload any) error
}

// forwardTimeout bounds a single fire-and-forget forward.
const forwardTimeout = 15 * time.Second

// Broker owns the state history, the queues, and the health map for the
// lifetime of the process. All mutation goes through its methods.
type Broker struct {
	states  *statebus.Store
	queues  *statebus.QueueStore
	health  *statebus.HealthMap
	rec     metrics.Recorder
	started time.Time

	// sinks receive accepted state records; both are optional and best-effort.
	eventLog EventSink
	mirror   EventSink

	mu        sync.RWMutex
	authToken string
	snapshot  config.Snapshot
}

// Option configures a Broker.
type Option func(*Broker)

// WithEventLog attaches the durable-log sink for accepted state records.
func WithEventLog(sink EventSink) Option {
	return func(b *Broker) { b.eventLog = sink }
}

// WithMirror attaches the push mirror (NATS) for accepted state records.
func WithMirror(sink EventSink) Option {
	return func(b *Broker) { b.mirror = sink }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(b *Broker) { b.rec = rec }
}

// New creates a broker from configuration.
func New(cfg *config.Config, opts ...Option) *Broker {
	b := &Broker{
		states:    statebus.NewStore(cfg.Broker.HistorySize, "broker"),
		queues:    statebus.NewQueueStore(),
		health:    statebus.NewHealthMap(),
		rec:       metrics.NoopRecorder{},
		started:   time.Now(),
		authToken: cfg.Broker.AuthToken,
		snapshot:  cfg.Snapshot(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubmitState parses, validates, stamps and records one state submission,
// then forwards a copy to the durable log and the mirror without blocking the
// caller. This is the single ingestion path both transports share.
func (b *Broker) SubmitState(body []byte) (statebus.Record, error) {
	rec, err := statebus.ParseRecord(body)
	if err != nil {
		b.rec.IncStateRejected(string(verrors.GetCategory(err)))
		return statebus.Record{}, err
	}

	stored := b.states.Record(rec)
	b.rec.IncStateRecorded(string(stored.State))

	b.forward("state_update", stored)
	return stored, nil
}

// forward dispatches one accepted record to the configured sinks,
// fire-and-forget: failures are logged and counted, never propagated, and a
// slow sink never delays the submitting producer.
func (b *Broker) forward(eventType string, rec statebus.Record) {
	if b.eventLog == nil && b.mirror == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()

		if b.eventLog != nil {
			if err := b.eventLog.SendEvent(ctx, eventType, rec); err != nil {
				b.rec.IncForwardFailure()
				slog.Warn("Event log forward failed",
					logfields.State(string(rec.State)),
					logfields.Error(err))
			}
		}
		if b.mirror != nil {
			if err := b.mirror.SendEvent(ctx, eventType, rec); err != nil {
				slog.Debug("State mirror publish failed", logfields.Error(err))
			}
		}
	}()
}

// EnqueueEntry validates and appends one entry to the named queue. Queue
// submissions are recorded locally only, never forwarded.
func (b *Broker) EnqueueEntry(queue string, body []byte) error {
	var entry statebus.Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return verrors.MalformedPayload(err)
	}
	if err := b.queues.Enqueue(queue, entry); err != nil {
		return err
	}
	b.rec.IncQueueEnqueued(queue)
	return nil
}

// DrainQueue atomically empties the named queue and returns everything removed.
func (b *Broker) DrainQueue(queue string) ([]statebus.Entry, error) {
	drained, err := b.queues.DrainAll(queue)
	if err != nil {
		return nil, err
	}
	b.rec.AddQueueDrained(queue, len(drained))
	return drained, nil
}

// QueryHistory pages the state history per the filter.
func (b *Broker) QueryHistory(f statebus.QueryFilter) statebus.QueryResult {
	return b.states.Query(f)
}

// HistoryLen returns the number of records currently held.
func (b *Broker) HistoryLen() int {
	return b.states.Len()
}

// CurrentState returns the most-recent-wins current view.
func (b *Broker) CurrentState() statebus.Record {
	return b.states.CurrentView()
}

// ResetToIdle drops the current view back to baseline idle. Used by the
// in-process watchdog; the history keeps its audit trail.
func (b *Broker) ResetToIdle() {
	b.states.ResetToIdle()
	b.rec.IncWatchdogReset()
}

// ReportHealth upserts one service's health record (last write wins).
func (b *Broker) ReportHealth(name, status string, uptimeSec float64) {
	b.health.Report(name, status, uptimeSec)
}

// HealthList returns all reported service health records.
func (b *Broker) HealthList() []statebus.HealthRecord {
	return b.health.List()
}

// Uptime returns how long this broker has been running.
func (b *Broker) Uptime() time.Duration {
	return time.Since(b.started)
}

// AuthToken returns the currently effective auth token ("" = open access).
func (b *Broker) AuthToken() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.authToken
}

// ConfigSnapshot returns the sanitized effective configuration.
func (b *Broker) ConfigSnapshot() config.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// ApplyConfig applies the hot-reloadable parts of a fresh configuration:
// the auth token and the sanitized snapshot. Listen addresses and store
// capacity require a restart.
func (b *Broker) ApplyConfig(cfg *config.Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authToken = cfg.Broker.AuthToken
	b.snapshot = cfg.Snapshot()
	slog.Info("Broker configuration applied",
		slog.Bool("auth_required", cfg.Broker.AuthToken != ""))
}
