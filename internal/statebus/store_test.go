package statebus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mkRecord(state SessionState, source, session string) Record {
	return Record{
		State:     state,
		Source:    source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ExpiresAt: time.Now().UTC().Add(5 * time.Second).Format(time.RFC3339),
		SessionID: session,
	}
}

func TestStoreRecordStampsReceivedAt(t *testing.T) {
	s := NewStore(10, "broker")
	rec := s.Record(mkRecord(StateListening, "stt", "s1"))
	require.False(t, rec.ReceivedAt.IsZero())
}

func TestStoreReceivedAtMonotone(t *testing.T) {
	s := NewStore(300, "broker")
	var prev time.Time
	for i := 0; i < 50; i++ {
		rec := s.Record(mkRecord(StateThinking, "llm", "s1"))
		require.False(t, rec.ReceivedAt.Before(prev))
		prev = rec.ReceivedAt
	}
}

func TestStoreEvictsOldestAtCapacity(t *testing.T) {
	s := NewStore(200, "broker")
	for i := 0; i < 201; i++ {
		s.Record(mkRecord(StateListening, "stt", fmt.Sprintf("s%d", i)))
	}

	require.Equal(t, 200, s.Len())
	page := s.Query(QueryFilter{Limit: 300})
	require.Len(t, page.Entries, 200)
	// The 1st insert is gone; the 2nd is the oldest remaining.
	require.Equal(t, "s1", page.Entries[0].SessionID)
	require.Equal(t, "s200", page.Entries[199].SessionID)
}

func TestStoreCurrentViewBaseline(t *testing.T) {
	s := NewStore(10, "broker")
	cur := s.CurrentView()
	require.Equal(t, StateIdle, cur.State)
	require.Equal(t, "broker", cur.Source)
	require.Empty(t, cur.ExpiresAt)
}

func TestStoreCurrentViewFollowsLatestAndResets(t *testing.T) {
	s := NewStore(10, "broker")
	s.Record(mkRecord(StateListening, "stt", "s1"))
	s.Record(mkRecord(StateTalking, "tts", "s1"))

	require.Equal(t, StateTalking, s.CurrentView().State)

	s.ResetToIdle()
	cur := s.CurrentView()
	require.Equal(t, StateIdle, cur.State)
	require.Empty(t, cur.ExpiresAt)
	// History is untouched by a view reset.
	require.Equal(t, 2, s.Len())
}

func TestQueryRightAnchoredPagination(t *testing.T) {
	s := NewStore(10, "broker")
	for i := 1; i <= 3; i++ {
		s.Record(mkRecord(StateListening, "stt", fmt.Sprintf("s%d", i)))
	}

	// offset=0,limit=1 is the single most recent entry.
	page := s.Query(QueryFilter{Limit: 1, Offset: 0})
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Entries, 1)
	require.Equal(t, "s3", page.Entries[0].SessionID)

	// offset counts back from the end.
	page = s.Query(QueryFilter{Limit: 1, Offset: 1})
	require.Len(t, page.Entries, 1)
	require.Equal(t, "s2", page.Entries[0].SessionID)

	// window larger than what remains clamps to the start.
	page = s.Query(QueryFilter{Limit: 5, Offset: 2})
	require.Len(t, page.Entries, 1)
	require.Equal(t, "s1", page.Entries[0].SessionID)

	// offset past the end yields an empty page with the full total.
	page = s.Query(QueryFilter{Limit: 5, Offset: 10})
	require.Empty(t, page.Entries)
	require.Equal(t, 3, page.Total)
}

func TestQueryFilters(t *testing.T) {
	s := NewStore(10, "broker")
	s.Record(mkRecord(StateListening, "stt", "s1"))
	s.Record(mkRecord(StateThinking, "llm", "s1"))
	s.Record(mkRecord(StateListening, "stt", "s2"))

	page := s.Query(QueryFilter{State: "listening"})
	require.Equal(t, 2, page.Total)
	for _, e := range page.Entries {
		require.Equal(t, StateListening, e.State)
	}

	page = s.Query(QueryFilter{State: "listening", Source: "llm"})
	require.Zero(t, page.Total)

	// total reflects the filtered count, not the unfiltered history.
	page = s.Query(QueryFilter{State: "thinking", Limit: 1})
	require.Equal(t, 1, page.Total)
	require.Equal(t, "llm", page.Entries[0].Source)
}

func TestQuerySinceFilter(t *testing.T) {
	s := NewStore(10, "broker")

	old := mkRecord(StateListening, "stt", "old")
	old.Timestamp = "2020-01-01T00:00:00Z"
	s.Record(old)

	recent := mkRecord(StateListening, "stt", "recent")
	recent.Timestamp = "2030-01-01T00:00:00Z"
	s.Record(recent)

	page := s.Query(QueryFilter{Since: "2025-01-01T00:00:00Z"})
	require.Equal(t, 1, page.Total)
	require.Equal(t, "recent", page.Entries[0].SessionID)

	// An unparseable since disables the filter rather than hiding history.
	page = s.Query(QueryFilter{Since: "garbage"})
	require.Equal(t, 2, page.Total)
}

func TestQuerySinceExcludesUnparseableTimestamps(t *testing.T) {
	s := NewStore(10, "broker")
	rec := mkRecord(StateListening, "stt", "s1")
	rec.Timestamp = "not-a-timestamp"
	s.Record(rec)
	s.Record(mkRecord(StateListening, "stt", "s2"))

	// A record whose own timestamp does not parse never matches a since
	// filter, but it stays visible in unfiltered history.
	since := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	page := s.Query(QueryFilter{Since: since})
	require.Equal(t, 1, page.Total)
	require.Equal(t, "s2", page.Entries[0].SessionID)

	page = s.Query(QueryFilter{})
	require.Equal(t, 2, page.Total)
}
