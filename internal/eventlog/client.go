package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
)

// Client forwards events to a remote event-log service. It satisfies the
// broker's EventSink.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the event log at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SendEvent POSTs one event. Any non-2xx answer is a forwarding failure.
func (c *Client) SendEvent(ctx context.Context, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	body, err := json.Marshal(eventSubmission{Type: eventType, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return verrors.ForwardingFailed(err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return verrors.ForwardingFailed(fmt.Errorf("event log answered %d", resp.StatusCode))
	}
	return nil
}
