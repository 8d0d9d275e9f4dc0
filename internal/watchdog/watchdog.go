// Package watchdog enforces the session-state expiry policy: whenever the
// current view outlives its lease, the watchdog forces the bus back to idle
// so a crashed producer can never wedge the session in a busy state.
package watchdog

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/scheduler"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// idleLease is how long a synthetic idle record stays fresh. Idle is the
// baseline, so the lease only matters for consumers that inspect expiresAt.
const idleLease = 5 * time.Second

// Bus is the slice of the state bus the watchdog acts on. The broker
// satisfies it directly for the in-process mode; the standalone mode uses an
// HTTP-backed adapter.
type Bus interface {
	CurrentState() statebus.Record
	SubmitState(body []byte) (statebus.Record, error)
	ResetToIdle()
}

// Watchdog drives the expiry sweep.
type Watchdog struct {
	bus    Bus
	source string
	tick   time.Duration
	now    func() time.Time
}

// New creates a watchdog posting synthetic records under the given source name.
func New(bus Bus, source string, tick time.Duration) *Watchdog {
	return &Watchdog{
		bus:    bus,
		source: source,
		tick:   tick,
		now:    time.Now,
	}
}

// Schedule registers the periodic sweep on the scheduler.
func (w *Watchdog) Schedule(sched *scheduler.Scheduler) error {
	_, err := sched.ScheduleEvery("watchdog-sweep", w.tick, func() {
		w.Sweep()
	})
	return err
}

// Sweep runs one expiry check. When the current non-idle state has outlived
// its lease, the view is reset locally first, then a synthetic idle record is
// submitted through the normal ingestion path so the transition lands in the
// history and reaches downstream sinks. The reset holds even when the
// submission fails.
func (w *Watchdog) Sweep() {
	now := w.now()
	current := w.bus.CurrentState()
	if current.State == statebus.StateIdle {
		return
	}
	if !statebus.ShouldExpire(current, now) {
		return
	}

	slog.Info("Session state expired, forcing idle",
		logfields.State(string(current.State)),
		logfields.Source(current.Source),
		logfields.SessionID(current.SessionID))

	w.bus.ResetToIdle()

	if _, err := w.bus.SubmitState(w.syntheticIdle(now)); err != nil {
		slog.Warn("Synthetic idle submission failed",
			logfields.Reason("watchdog_timeout"),
			logfields.Error(err))
	}
}

// syntheticIdle builds the audit record announcing the forced transition.
func (w *Watchdog) syntheticIdle(now time.Time) []byte {
	body, _ := json.Marshal(map[string]any{
		"state":     string(statebus.StateIdle),
		"source":    w.source,
		"timestamp": now.UTC().Format(time.RFC3339),
		"expiresAt": now.Add(idleLease).UTC().Format(time.RFC3339),
		"sessionId": uuid.NewString(),
		"details":   map[string]any{"reason": "watchdog_timeout"},
	})
	return body
}
