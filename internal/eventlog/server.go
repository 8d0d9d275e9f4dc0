package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
)

// maxEventBytes bounds one incoming event document.
const maxEventBytes = 1 << 20

// Server exposes the event log over HTTP: POST /events to append,
// GET /events for the recent window, GET /health for liveness.
type Server struct {
	addr         string
	store        *Store
	server       *http.Server
	errorAdapter *verrors.HTTPErrorAdapter
	started      time.Time
}

// NewServer creates the event-log HTTP server around a store.
func NewServer(addr string, store *Store) *Server {
	return &Server{
		addr:         addr,
		store:        store,
		errorAdapter: verrors.NewHTTPErrorAdapter(slog.Default()),
		started:      time.Now(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// eventSubmission is the wire shape for appends.
type eventSubmission struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.append(w, r)
	case http.MethodGet:
		s.recent(w, r)
	default:
		s.methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) append(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, verrors.MalformedPayload(err))
		return
	}

	var sub eventSubmission
	if err := json.Unmarshal(body, &sub); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, verrors.MalformedPayload(err))
		return
	}
	if sub.Type == "" {
		s.errorAdapter.WriteErrorResponse(w, r, verrors.MissingField("type"))
		return
	}

	if err := s.store.Append(r.Context(), sub.Type, sub.Payload); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r,
			verrors.WrapError(err, verrors.CategoryEventLog, "failed to store event").Build())
		return
	}

	slog.Debug("Event stored", slog.String("event_type", sub.Type))
	s.writeJSON(w, r, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) recent(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.Recent(r.Context(), 0)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r,
			verrors.WrapError(err, verrors.CategoryEventLog, "failed to read events").Build())
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptimeSec": time.Since(s.started).Seconds(),
	})
}

// methodNotAllowed rejects an unsupported verb and advertises the supported
// ones via the Allow header.
func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte("{\"error\":\"method not allowed\"}\n"))
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r,
			verrors.InternalError("failed to encode response", err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing event log response", logfields.Error(err))
	}
}

// Start pre-binds the listener then serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("event log startup failed: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Event log server error", logfields.Error(err))
		}
	}()

	slog.Info("Event log listening", slog.String("addr", s.addr))
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("event log shutdown: %w", err)
	}
	slog.Info("Event log server stopped")
	return nil
}
