package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/voicebus/internal/logfields"
)

// MirrorPublisher pushes accepted state records to a NATS subject so other
// processes can observe the bus without polling /logs. Publishing is
// best-effort; a slow or absent NATS server never blocks ingestion.
type MirrorPublisher struct {
	conn    *nats.Conn
	subject string
}

// mirrorEnvelope is the wire shape published to the mirror subject.
type mirrorEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// NewMirrorPublisher connects to the NATS server at url. The connection
// reconnects indefinitely in the background.
func NewMirrorPublisher(url, subject string) (*MirrorPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("voicebus-mirror"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("Mirror connection lost", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("Mirror connection restored")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to mirror %s: %w", url, err)
	}
	return &MirrorPublisher{conn: conn, subject: subject}, nil
}

// SendEvent implements EventSink by publishing the envelope to the subject.
func (m *MirrorPublisher) SendEvent(_ context.Context, eventType string, payload any) error {
	data, err := json.Marshal(mirrorEnvelope{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal mirror event: %w", err)
	}
	if err := m.conn.Publish(m.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", m.subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (m *MirrorPublisher) Close() {
	if err := m.conn.Drain(); err != nil {
		m.conn.Close()
	}
}
