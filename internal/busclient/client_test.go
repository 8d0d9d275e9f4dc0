package busclient

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/voicebus/internal/broker"
	"git.home.luguber.info/inful/voicebus/internal/config"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/metrics"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

func newBrokerServer(t *testing.T, token string) (*httptest.Server, *broker.Broker) {
	t.Helper()
	cfg := config.Default()
	cfg.Broker.AuthToken = token
	bus := broker.New(cfg)
	srv := broker.NewHTTPServer(cfg.Broker.Addr(), bus, metrics.NoopRecorder{}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, bus
}

func statePayload(state string) map[string]any {
	return map[string]any{
		"state":     state,
		"source":    "playback",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"expiresAt": time.Now().Add(5 * time.Second).UTC().Format(time.RFC3339),
		"sessionId": "sess-c",
	}
}

func TestClientStateRoundTrip(t *testing.T) {
	ts, bus := newBrokerServer(t, "")
	client := New(ts.URL, "")
	ctx := t.Context()

	require.NoError(t, client.SubmitState(ctx, statePayload("talking")))
	assert.Equal(t, statebus.StateTalking, bus.CurrentState().State)

	rec, err := client.LatestState(ctx)
	require.NoError(t, err)
	assert.Equal(t, statebus.StateTalking, rec.State)
	assert.Equal(t, "playback", rec.Source)
}

func TestClientQueues(t *testing.T) {
	ts, _ := newBrokerServer(t, "")
	client := New(ts.URL, "")
	ctx := t.Context()

	require.NoError(t, client.EnqueueResponse(ctx, map[string]any{"text": "hi"}))
	require.NoError(t, client.EnqueueCommand(ctx, map[string]any{"type": "stop_tts"}))

	responses, err := client.DrainResponses(ctx)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "hi", responses[0]["text"])

	commands, err := client.DrainCommands(ctx)
	require.NoError(t, err)
	require.Len(t, commands, 1)

	// Drained means gone.
	responses, err = client.DrainResponses(ctx)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestClientAuth(t *testing.T) {
	ts, _ := newBrokerServer(t, "sekrit")

	err := New(ts.URL, "").SubmitState(t.Context(), statePayload("idle"))
	require.Error(t, err)
	assert.Equal(t, verrors.CategoryNetwork, verrors.GetCategory(err))

	require.NoError(t,
		New(ts.URL, "sekrit").SubmitState(t.Context(), statePayload("idle")))
}

func TestClientSurfacesValidationErrors(t *testing.T) {
	ts, _ := newBrokerServer(t, "")
	client := New(ts.URL, "")

	err := client.SubmitState(t.Context(), map[string]any{"state": "idle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing field")
}

func TestClientHealthReport(t *testing.T) {
	ts, bus := newBrokerServer(t, "")
	client := New(ts.URL, "")

	require.NoError(t, client.ReportHealth(t.Context(), "playback", "ok", 7))
	list := bus.HealthList()
	require.Len(t, list, 1)
	assert.Equal(t, "playback", list[0].Name)
}

func TestClientUnreachableBroker(t *testing.T) {
	client := New("http://127.0.0.1:1", "")
	err := client.SubmitState(t.Context(), statePayload("idle"))
	require.Error(t, err)
	assert.Equal(t, verrors.CategoryNetwork, verrors.GetCategory(err))
}

func TestRemoteBusTracksBroker(t *testing.T) {
	ts, bus := newBrokerServer(t, "")
	remote := NewRemoteBus(New(ts.URL, ""))

	require.NoError(t,
		New(ts.URL, "").SubmitState(t.Context(), statePayload("thinking")))
	assert.Equal(t, statebus.StateThinking, remote.CurrentState().State)

	// The local reset is independent of the broker view.
	remote.ResetToIdle()
	assert.Equal(t, statebus.StateThinking, bus.CurrentState().State)
}

func TestRemoteBusFallsBackWhenUnreachable(t *testing.T) {
	remote := NewRemoteBus(New("http://127.0.0.1:1", ""))

	assert.Equal(t, statebus.StateIdle, remote.CurrentState().State)

	remote.mu.Lock()
	remote.last = statebus.Record{State: statebus.StateTalking, Source: "tts"}
	remote.mu.Unlock()
	assert.Equal(t, statebus.StateTalking, remote.CurrentState().State)

	remote.ResetToIdle()
	assert.Equal(t, statebus.StateIdle, remote.CurrentState().State)
}
