// Package busclient is the HTTP client auxiliary services use to talk to the
// broker: state submission, queue traffic, and health reporting.
package busclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	verrors "git.home.luguber.info/inful/voicebus/internal/errors"
	"git.home.luguber.info/inful/voicebus/internal/statebus"
)

// requestTimeout bounds every broker call; the bus is local, slow answers
// mean something is wrong.
const requestTimeout = 15 * time.Second

// Client talks to one broker instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a broker client. An empty token sends no Authorization header.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// SubmitState POSTs one state record to /state.
func (c *Client) SubmitState(ctx context.Context, payload any) error {
	return c.post(ctx, "/state", payload, nil)
}

// LatestState fetches the broker's current view.
func (c *Client) LatestState(ctx context.Context) (statebus.Record, error) {
	var resp struct {
		Current statebus.Record `json:"current"`
	}
	if err := c.get(ctx, "/state", &resp); err != nil {
		return statebus.Record{}, err
	}
	return resp.Current, nil
}

// EnqueueResponse appends one entry to the responses queue.
func (c *Client) EnqueueResponse(ctx context.Context, entry map[string]any) error {
	return c.post(ctx, "/responses", entry, nil)
}

// EnqueueCommand appends one entry to the commands queue.
func (c *Client) EnqueueCommand(ctx context.Context, entry map[string]any) error {
	return c.post(ctx, "/commands", entry, nil)
}

// DrainResponses removes and returns everything in the responses queue.
func (c *Client) DrainResponses(ctx context.Context) ([]statebus.Entry, error) {
	var resp struct {
		Responses []statebus.Entry `json:"responses"`
	}
	if err := c.get(ctx, "/responses", &resp); err != nil {
		return nil, err
	}
	return resp.Responses, nil
}

// DrainCommands removes and returns everything in the commands queue.
func (c *Client) DrainCommands(ctx context.Context) ([]statebus.Entry, error) {
	var resp struct {
		Commands []statebus.Entry `json:"commands"`
	}
	if err := c.get(ctx, "/commands", &resp); err != nil {
		return nil, err
	}
	return resp.Commands, nil
}

// ReportHealth posts one liveness report under the given service name.
func (c *Client) ReportHealth(ctx context.Context, name, status string, uptimeSec float64) error {
	return c.post(ctx, "/health", map[string]any{
		"name":      name,
		"status":    status,
		"uptimeSec": uptimeSec,
	}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return verrors.WrapError(err, verrors.CategoryNetwork, "broker unreachable").
			Retryable().Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := fmt.Sprintf("broker answered %d", resp.StatusCode)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = fmt.Sprintf("broker answered %d: %s", resp.StatusCode, apiErr.Error)
		}
		return verrors.NewError(verrors.CategoryNetwork, msg).Build()
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
