// Package statebus holds the state-bus core: session state records, the
// bounded history store, the message queues, and the expiry policy the
// watchdog enforces.
package statebus

import (
	"encoding/json"
	"time"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
)

// SessionState is the coarse activity phase broadcast by producers.
type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateListening SessionState = "listening"
	StateThinking  SessionState = "thinking"
	StateTalking   SessionState = "talking"
)

// Valid reports whether the state is one of the closed session-state enum.
func (s SessionState) Valid() bool {
	switch s {
	case StateIdle, StateListening, StateThinking, StateTalking:
		return true
	}
	return false
}

// requiredFields are the producer-supplied fields every state submission must carry.
var requiredFields = []string{"state", "source", "timestamp", "expiresAt", "sessionId"}

// Record is one producer's claim about the overall session state.
//
// Timestamp, ExpiresAt and SessionID are carried as the producer sent them;
// timestamps are only parsed where a decision needs them (ExpiryPolicy,
// history filtering), and bad values fail open there. ReceivedAt is always
// broker-assigned.
type Record struct {
	State      SessionState   `json:"state"`
	Source     string         `json:"source"`
	Timestamp  string         `json:"timestamp"`
	ExpiresAt  string         `json:"expiresAt"`
	SessionID  string         `json:"sessionId"`
	Details    map[string]any `json:"details,omitempty"`
	ReceivedAt time.Time      `json:"receivedAt,omitzero"`
}

// Validate is the pure state-update validator: it checks that every required
// field is present and that the state name is legal. Timestamp contents are
// deliberately not parsed here; that is the expiry policy's concern.
func Validate(payload map[string]any) error {
	for _, field := range requiredFields {
		if _, ok := payload[field]; !ok {
			return verrors.MissingField(field)
		}
	}
	state, _ := payload["state"].(string)
	if !SessionState(state).Valid() {
		return verrors.InvalidState(state)
	}
	return nil
}

// ParseRecord decodes and validates a raw state submission. The two-step
// decode keeps field-presence semantics exact: a field explicitly set to null
// is present, an absent field is not.
func ParseRecord(body []byte) (Record, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Record{}, verrors.MalformedPayload(err)
	}
	if err := Validate(payload); err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, verrors.MalformedPayload(err)
	}
	// ReceivedAt is broker-assigned; a producer-supplied value is discarded.
	rec.ReceivedAt = time.Time{}
	return rec, nil
}
