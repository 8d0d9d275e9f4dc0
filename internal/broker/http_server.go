package broker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/voicebus/internal/broker/handlers"
	"git.home.luguber.info/inful/voicebus/internal/broker/middleware"
	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/metrics"
)

// HTTPServer manages the broker's HTTP API.
type HTTPServer struct {
	addr         string
	server       *http.Server
	bus          *Broker
	errorAdapter *verrors.HTTPErrorAdapter
	registry     *prom.Registry

	stateHandlers      *handlers.StateHandlers
	queueHandlers      *handlers.QueueHandlers
	monitoringHandlers *handlers.MonitoringHandlers
	logHandlers        *handlers.LogHandlers
	configHandlers     *handlers.ConfigHandlers

	// middleware chain
	mchain func(http.Handler) http.Handler
}

// NewHTTPServer creates the broker HTTP server. The registry is optional;
// when set, GET /metrics serves it.
func NewHTTPServer(addr string, bus *Broker, rec metrics.Recorder, registry *prom.Registry) *HTTPServer {
	s := &HTTPServer{
		addr:         addr,
		bus:          bus,
		errorAdapter: verrors.NewHTTPErrorAdapter(slog.Default()),
		registry:     registry,
	}

	s.stateHandlers = handlers.NewStateHandlers(bus)
	s.queueHandlers = handlers.NewQueueHandlers(bus)
	s.monitoringHandlers = handlers.NewMonitoringHandlers(bus)
	s.logHandlers = handlers.NewLogHandlers(bus)
	s.configHandlers = handlers.NewConfigHandlers(bus)

	s.mchain = middleware.Chain(slog.Default(), s.errorAdapter, rec, bus.AuthToken)

	return s
}

// Handler builds the full route table with the middleware chain applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.routeState)
	mux.HandleFunc("/responses", s.queueHandlers.HandleResponses)
	mux.HandleFunc("/commands", s.queueHandlers.HandleCommands)
	mux.HandleFunc("/health", s.monitoringHandlers.HandleHealth)
	mux.HandleFunc("/logs", s.logHandlers.HandleLogs)
	mux.HandleFunc("/stats", s.monitoringHandlers.HandleStats)
	mux.HandleFunc("/config", s.configHandlers.HandleConfig)
	if s.registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, r, verrors.NotFound(r.URL.Path))
	})
	return s.mchain(mux)
}

func (s *HTTPServer) routeState(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.stateHandlers.HandleCurrentState(w, r)
		return
	}
	s.stateHandlers.HandleSubmitState(w, r)
}

// Start pre-binds the listener so startup failures surface immediately, then
// serves in the background.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Broker HTTP server error", "error", err)
		}
	}()

	slog.Info("Broker HTTP listening", slog.String("addr", s.addr))
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("broker http shutdown: %w", err)
	}
	slog.Info("Broker HTTP server stopped")
	return nil
}
