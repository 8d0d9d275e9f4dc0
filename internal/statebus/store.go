package statebus

import (
	"sync"
	"time"
)

// DefaultHistorySize is the bounded history capacity; the oldest accepted
// record is evicted first once the ring is full.
const DefaultHistorySize = 200

// defaultQueryLimit bounds a history page when the caller does not say.
const defaultQueryLimit = 50

// Store is the in-process bounded history of accepted state records with a
// most-recent-wins current-state view. The broker owns the store exclusively;
// all mutation goes through Record and ResetToIdle.
//
// History is a fixed-capacity ring (slice + head index), never a growing
// slice, so a chatty producer cannot balloon memory.
type Store struct {
	mu   sync.RWMutex
	buf  []Record
	head int // index of the oldest entry
	n    int

	current        *Record
	baselineSource string
	lastReceived   time.Time
}

// NewStore creates a store with the given ring capacity. Non-positive
// capacities fall back to DefaultHistorySize.
func NewStore(capacity int, baselineSource string) *Store {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Store{
		buf:            make([]Record, capacity),
		baselineSource: baselineSource,
	}
}

// Record stamps ReceivedAt and appends a validated record to the history,
// evicting the oldest entry when the ring is full. The record also becomes
// the current view.
//
// ReceivedAt is clamped to be monotonically non-decreasing across the stored
// history so insertion order and timestamp order cannot disagree.
func (s *Store) Record(rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(s.lastReceived) {
		now = s.lastReceived
	}
	rec.ReceivedAt = now
	s.lastReceived = now

	if s.n < len(s.buf) {
		s.buf[(s.head+s.n)%len(s.buf)] = rec
		s.n++
	} else {
		s.buf[s.head] = rec
		s.head = (s.head + 1) % len(s.buf)
	}

	cp := rec
	s.current = &cp
	return rec
}

// CurrentView returns the most recently recorded entry, or the baseline idle
// record when nothing has been recorded yet or after a reset.
func (s *Store) CurrentView() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil {
		return *s.current
	}
	return s.baseline()
}

// ResetToIdle drops the current view back to the baseline idle record. The
// history is untouched; expiry only ever resets the view, never the audit trail.
func (s *Store) ResetToIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *Store) baseline() Record {
	return Record{
		State:  StateIdle,
		Source: s.baselineSource,
	}
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.n
}

// QueryFilter selects and pages the history. Offset counts back from the END
// of the filtered set and Limit bounds the page read backward from there, so
// "most recent N" is simply {Limit: N, Offset: 0}. Entries inside a page are
// still ordered oldest to newest.
type QueryFilter struct {
	Limit  int
	Offset int
	State  string
	Source string
	Since  string // RFC3339; unparseable values disable the filter
}

// QueryResult is one history page plus the pre-pagination filtered count.
type QueryResult struct {
	Entries []Record `json:"entries"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Query returns a consistent snapshot page of the history per the filter.
func (s *Store) Query(f QueryFilter) QueryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var sinceTime time.Time
	haveSince := false
	if f.Since != "" {
		if t, err := time.Parse(time.RFC3339, f.Since); err == nil {
			sinceTime = t
			haveSince = true
		}
	}

	filtered := make([]Record, 0, s.n)
	for i := 0; i < s.n; i++ {
		rec := s.buf[(s.head+i)%len(s.buf)]
		if f.State != "" && string(rec.State) != f.State {
			continue
		}
		if f.Source != "" && rec.Source != f.Source {
			continue
		}
		if haveSince && !recordAfter(rec, sinceTime) {
			continue
		}
		filtered = append(filtered, rec)
	}

	total := len(filtered)
	end := max(0, total-offset)
	start := max(0, end-limit)

	return QueryResult{
		Entries: filtered[start:end],
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
}

// recordAfter reports whether the record's producer timestamp is at or after
// since. Records whose timestamp does not parse are excluded from a
// since-filtered query; unfiltered queries still return them.
func recordAfter(rec Record, since time.Time) bool {
	t, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		return false
	}
	return !t.Before(since)
}
