package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/logfields"
)

// socketConnTimeout bounds one submit-and-respond exchange.
const socketConnTimeout = 10 * time.Second

// SocketServer is the connection-oriented local ingress: one JSON state
// document per connection, one JSON response, then the connection closes.
// The client signals end-of-document by half-closing its write side.
//
// The socket path itself is the access boundary (filesystem permissions);
// the bearer token only guards the TCP surface.
type SocketServer struct {
	path string
	bus  *Broker

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
	closed   bool
}

// NewSocketServer creates the unix-socket ingress for the given broker.
func NewSocketServer(path string, bus *Broker) *SocketServer {
	return &SocketServer{path: path, bus: bus}
}

// Start removes any stale socket file, binds, and accepts in the background.
func (s *SocketServer) Start(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket %s: %w", s.path, err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop()

	slog.Info("Broker socket listening", slog.String("socket_path", s.path))
	return nil
}

func (s *SocketServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			slog.Warn("Socket accept failed", logfields.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn reads the full body, parses once, validates, responds, closes.
func (s *SocketServer) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(socketConnTimeout))

	body, err := io.ReadAll(conn)
	if err != nil {
		s.respondError(conn, verrors.MalformedPayload(err))
		return
	}

	if _, err := s.bus.SubmitState(body); err != nil {
		s.respondError(conn, err)
		return
	}
	s.respond(conn, map[string]bool{"ok": true})
}

func (s *SocketServer) respondError(conn net.Conn, err error) {
	msg := err.Error()
	if c, ok := verrors.AsClassified(err); ok {
		msg = c.Message()
	}
	s.respond(conn, map[string]string{"error": msg})
}

func (s *SocketServer) respond(conn net.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if _, err := conn.Write(data); err != nil {
		slog.Debug("Socket response write failed", logfields.Error(err))
	}
}

// Stop closes the listener, waits for in-flight connections, and removes the
// socket file.
func (s *SocketServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	slog.Info("Broker socket stopped")
	return nil
}
