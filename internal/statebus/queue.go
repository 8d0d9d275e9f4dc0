package statebus

import (
	"sync"
	"time"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
)

// Queue names. The bus carries exactly two: synthesized speech waiting to be
// played, and control commands such as stop_tts.
const (
	QueueResponses = "responses"
	QueueCommands  = "commands"
)

// Entry is a queued message awaiting one-time delivery. Beyond the queue's
// required field, producers may attach arbitrary hints (priority, sessionId,
// provider hints) that ride along untouched.
type Entry map[string]any

// queueRule is the per-queue required-field check applied on enqueue.
type queueRule struct {
	field string
}

func (r queueRule) check(e Entry) error {
	v, ok := e[r.field]
	if !ok {
		return verrors.MissingField(r.field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return verrors.ValidationFailed(r.field, "must be a non-empty string")
	}
	return nil
}

// QueueStore holds the named FIFO queues with drain-on-read consumption.
type QueueStore struct {
	mu     sync.Mutex
	queues map[string][]Entry
	rules  map[string]queueRule
}

// NewQueueStore creates the store with the responses and commands queues.
func NewQueueStore() *QueueStore {
	return &QueueStore{
		queues: map[string][]Entry{
			QueueResponses: nil,
			QueueCommands:  nil,
		},
		rules: map[string]queueRule{
			QueueResponses: {field: "text"},
			QueueCommands:  {field: "type"},
		},
	}
}

// Enqueue validates the entry against the queue's required-field rule, stamps
// receivedAt, and appends it.
func (q *QueueStore) Enqueue(name string, entry Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rule, ok := q.rules[name]
	if !ok {
		return verrors.UnknownQueue(name)
	}
	if err := rule.check(entry); err != nil {
		return err
	}

	// Copy so later caller mutation cannot reach into the queue.
	stamped := make(Entry, len(entry)+1)
	for k, v := range entry {
		stamped[k] = v
	}
	stamped["receivedAt"] = time.Now().UTC().Format(time.RFC3339Nano)

	q.queues[name] = append(q.queues[name], stamped)
	return nil
}

// DrainAll atomically removes and returns every currently queued entry,
// oldest first. An immediately following drain returns an empty slice; no
// entry is ever handed to two drains.
func (q *QueueStore) DrainAll(name string) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.rules[name]; !ok {
		return nil, verrors.UnknownQueue(name)
	}
	drained := q.queues[name]
	q.queues[name] = nil
	if drained == nil {
		drained = []Entry{}
	}
	return drained, nil
}

// Len returns the number of entries waiting in the named queue.
func (q *QueueStore) Len(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[name])
}
