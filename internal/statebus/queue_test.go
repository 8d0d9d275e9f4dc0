package statebus

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
)

func TestQueueEnqueueValidation(t *testing.T) {
	q := NewQueueStore()

	require.NoError(t, q.Enqueue(QueueResponses, Entry{"text": "hello"}))
	require.NoError(t, q.Enqueue(QueueCommands, Entry{"type": "stop_tts"}))

	err := q.Enqueue(QueueResponses, Entry{"priority": "urgent"})
	require.Error(t, err)
	require.Equal(t, verrors.CategoryValidation, verrors.GetCategory(err))

	err = q.Enqueue(QueueResponses, Entry{"text": 42})
	require.Error(t, err)

	err = q.Enqueue(QueueCommands, Entry{"type": ""})
	require.Error(t, err)

	err = q.Enqueue("jobs", Entry{"text": "nope"})
	require.Error(t, err)
	require.Equal(t, verrors.CategoryNotFound, verrors.GetCategory(err))
}

func TestQueueDrainAllIsIdempotentEmpty(t *testing.T) {
	q := NewQueueStore()
	require.NoError(t, q.Enqueue(QueueResponses, Entry{"text": "one"}))
	require.NoError(t, q.Enqueue(QueueResponses, Entry{"text": "two"}))

	drained, err := q.DrainAll(QueueResponses)
	require.NoError(t, err)
	require.Len(t, drained, 2)
	require.Equal(t, "one", drained[0]["text"])
	require.Equal(t, "two", drained[1]["text"])
	require.NotEmpty(t, drained[0]["receivedAt"])

	again, err := q.DrainAll(QueueResponses)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestQueueDrainUnknownQueue(t *testing.T) {
	q := NewQueueStore()
	_, err := q.DrainAll("jobs")
	require.Error(t, err)
}

func TestQueueEntryCopiedOnEnqueue(t *testing.T) {
	q := NewQueueStore()
	entry := Entry{"text": "original"}
	require.NoError(t, q.Enqueue(QueueResponses, entry))

	entry["text"] = "mutated"

	drained, err := q.DrainAll(QueueResponses)
	require.NoError(t, err)
	require.Equal(t, "original", drained[0]["text"])
}

func TestQueueNoEntryDeliveredTwiceUnderConcurrentDrains(t *testing.T) {
	q := NewQueueStore()
	const total = 500
	for i := 0; i < total; i++ {
		require.NoError(t, q.Enqueue(QueueResponses, Entry{"text": fmt.Sprintf("m%d", i)}))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drained, err := q.DrainAll(QueueResponses)
			if err != nil {
				return
			}
			mu.Lock()
			for _, e := range drained {
				seen[e["text"].(string)]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, total)
	for text, count := range seen {
		require.Equal(t, 1, count, "entry %s delivered %d times", text, count)
	}
}

func TestHealthMapLastWriteWins(t *testing.T) {
	h := NewHealthMap()
	h.Report("stt", "ok", 10)
	h.Report("tts-router", "ok", 20)
	h.Report("stt", "degraded", 30)

	list := h.List()
	require.Len(t, list, 2)
	require.Equal(t, "stt", list[0].Name)
	require.Equal(t, "degraded", list[0].Status)
	require.Equal(t, 30.0, list[0].UptimeSec)
	require.Equal(t, "tts-router", list[1].Name)
}
