package busclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/voicebus/internal/logfields"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// RemoteBus adapts the HTTP client to the watchdog's bus interface so the
// watchdog can run as its own process. It keeps a local copy of the last
// observed state; when the broker is unreachable the copy is what gets reset,
// so the watchdog's own view never stays wedged either.
type RemoteBus struct {
	client *Client

	mu   sync.Mutex
	last statebus.Record
}

// NewRemoteBus wraps a broker client.
func NewRemoteBus(client *Client) *RemoteBus {
	return &RemoteBus{
		client: client,
		last:   statebus.Record{State: statebus.StateIdle, Source: "broker"},
	}
}

// CurrentState fetches the broker's view, falling back to the last observed
// record when the broker cannot be reached.
func (r *RemoteBus) CurrentState() statebus.Record {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	rec, err := r.client.LatestState(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		slog.Debug("Current-state fetch failed, using last observed",
			logfields.Error(err))
		return r.last
	}
	r.last = rec
	return rec
}

// SubmitState posts the record through the broker's ingestion path.
func (r *RemoteBus) SubmitState(body []byte) (statebus.Record, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return statebus.Record{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := r.client.SubmitState(ctx, payload); err != nil {
		return statebus.Record{}, err
	}

	var rec statebus.Record
	_ = json.Unmarshal(body, &rec)
	return rec, nil
}

// ResetToIdle resets the local copy only; the broker's own view returns to
// idle through the synthetic submission.
func (r *RemoteBus) ResetToIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = statebus.Record{State: statebus.StateIdle, Source: "broker"}
}
