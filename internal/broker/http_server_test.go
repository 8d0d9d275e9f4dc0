package broker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/voicebus/internal/config"
	"git.home.luguber.info/inful/voicebus/internal/metrics"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *Broker) {
	t.Helper()
	bus := New(cfg)
	srv := NewHTTPServer(cfg.Broker.Addr(), bus, metrics.NoopRecorder{}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, bus
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func statePayload(state, source, session string) map[string]any {
	return map[string]any{
		"state":     state,
		"source":    source,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"expiresAt": time.Now().Add(5 * time.Second).UTC().Format(time.RFC3339),
		"sessionId": session,
	}
}

func TestHTTPStateRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	resp := postJSON(t, ts.URL+"/state", statePayload("listening", "stt", "s1"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var current struct {
		Current statebus.Record `json:"current"`
	}
	resp = getJSON(t, ts.URL+"/state", &current)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, statebus.StateListening, current.Current.State)
	assert.Equal(t, "stt", current.Current.Source)
}

func TestHTTPStateValidation(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	cases := []struct {
		name string
		body string
	}{
		{"missing field", `{"state":"idle","source":"stt"}`},
		{"invalid state", `{"state":"shouting","source":"stt","timestamp":"t","expiresAt":"t","sessionId":"s"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/state", "application/json",
				bytes.NewReader([]byte(tc.body)))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var errBody struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
			assert.NotEmpty(t, errBody.Error)
		})
	}
}

func TestHTTPAuth(t *testing.T) {
	cfg := config.Default()
	cfg.Broker.AuthToken = "secret-token"
	ts, _ := newTestServer(t, cfg)

	// No token.
	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong token.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/state", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct token.
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/state", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPAuthHotReload(t *testing.T) {
	cfg := config.Default()
	cfg.Broker.AuthToken = "old"
	ts, bus := newTestServer(t, cfg)

	next := config.Default()
	next.Broker.AuthToken = "new"
	bus.ApplyConfig(next)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/state", nil)
	req.Header.Set("Authorization", "Bearer old")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer new")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPLogsPagination(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	for i := 1; i <= 10; i++ {
		resp := postJSON(t, ts.URL+"/state",
			statePayload("listening", fmt.Sprintf("src-%d", i), "s1"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var page struct {
		Entries []statebus.Record `json:"entries"`
		Total   int               `json:"total"`
		Limit   int               `json:"limit"`
		Offset  int               `json:"offset"`
	}

	// Offset counts back from the most recent entry.
	getJSON(t, ts.URL+"/logs?limit=3&offset=0", &page)
	assert.Equal(t, 10, page.Total)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, "src-8", page.Entries[0].Source)
	assert.Equal(t, "src-10", page.Entries[2].Source)

	getJSON(t, ts.URL+"/logs?limit=3&offset=3", &page)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, "src-5", page.Entries[0].Source)
	assert.Equal(t, "src-7", page.Entries[2].Source)

	// Filter narrows before pagination; total reflects the filtered set.
	getJSON(t, ts.URL+"/logs?source=src-4", &page)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Entries, 1)

	// Bad parameters are rejected.
	resp, err := http.Get(ts.URL + "/logs?limit=-1")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPLogsEmptyHistory(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	resp, err := http.Get(ts.URL + "/logs")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"entries":[]`)
}

func TestHTTPQueues(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	resp := postJSON(t, ts.URL+"/responses", map[string]any{"text": "hi"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, ts.URL+"/commands", map[string]any{"type": "stop_tts"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/responses", map[string]any{"priority": "high"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var drained struct {
		Responses []statebus.Entry `json:"responses"`
	}
	getJSON(t, ts.URL+"/responses", &drained)
	require.Len(t, drained.Responses, 1)
	assert.Equal(t, "hi", drained.Responses[0]["text"])
	assert.Contains(t, drained.Responses[0], "receivedAt")

	// Second drain is empty, not an error.
	getJSON(t, ts.URL+"/responses", &drained)
	assert.Empty(t, drained.Responses)

	var cmds struct {
		Commands []statebus.Entry `json:"commands"`
	}
	getJSON(t, ts.URL+"/commands", &cmds)
	require.Len(t, cmds.Commands, 1)
	assert.Equal(t, "stop_tts", cmds.Commands[0]["type"])
}

func TestHTTPMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	cases := []struct {
		path  string
		allow string
	}{
		{"/state", "GET, POST"},
		{"/responses", "GET, POST"},
		{"/commands", "GET, POST"},
		{"/health", "GET, POST"},
		{"/logs", "GET"},
		{"/stats", "GET"},
		{"/config", "GET, POST"},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+tc.path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, tc.path)
		assert.Equal(t, tc.allow, resp.Header.Get("Allow"), tc.path)
	}
}

func TestHTTPHealthAndStats(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	resp := postJSON(t, ts.URL+"/health",
		map[string]any{"name": "playback", "uptimeSec": 4.5})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/health", map[string]any{"status": "ok"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var health struct {
		Services []statebus.HealthRecord `json:"services"`
	}
	getJSON(t, ts.URL+"/health", &health)
	require.Len(t, health.Services, 1)
	assert.Equal(t, "playback", health.Services[0].Name)
	assert.Equal(t, "ok", health.Services[0].Status)

	postJSON(t, ts.URL+"/state", statePayload("idle", "stt", "s1"))
	var stats struct {
		StateHistoryCount int `json:"stateHistoryCount"`
	}
	getJSON(t, ts.URL+"/stats", &stats)
	assert.Equal(t, 1, stats.StateHistoryCount)
}

func TestHTTPConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Broker.AuthToken = "hidden"
	ts, _ := newTestServer(t, cfg)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/config", nil)
	req.Header.Set("Authorization", "Bearer hidden")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "hidden", "secrets never leave the process")
	assert.Contains(t, string(body), `"auth_required":true`)

	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/config", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer hidden")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestHTTPUnknownRoute(t *testing.T) {
	ts, _ := newTestServer(t, config.Default())

	resp, err := http.Get(ts.URL + "/nonsense")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
