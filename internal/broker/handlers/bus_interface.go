package handlers

import (
	"time"

	"git.home.luguber.info/inful/voicebus/internal/config"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// BusInterface defines the broker operations the HTTP handlers need. The
// concrete broker satisfies it; tests substitute fakes.
type BusInterface interface {
	SubmitState(body []byte) (statebus.Record, error)
	EnqueueEntry(queue string, body []byte) error
	DrainQueue(queue string) ([]statebus.Entry, error)
	QueryHistory(f statebus.QueryFilter) statebus.QueryResult
	HistoryLen() int
	CurrentState() statebus.Record
	ReportHealth(name, status string, uptimeSec float64)
	HealthList() []statebus.HealthRecord
	ConfigSnapshot() config.Snapshot
	Uptime() time.Duration
}
