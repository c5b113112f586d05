// Package controller provides the HTTP client for the stimulus controller
// process: state, telemetry and quality polling plus command posting.
package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.aimuz.me/stimui/internal/types"
)

// DefaultBaseURL is where the controller listens unless configured otherwise.
const DefaultBaseURL = "http://127.0.0.1:7777"

// ClientIDHeader carries the client instance id on every request.
const ClientIDHeader = "X-Client-ID"

var (
	// ErrNotReady is returned by EEG when the controller has no telemetry yet.
	ErrNotReady = errors.New("controller: not ready")
	// ErrStatus is wrapped by every non-2xx response.
	ErrStatus = errors.New("controller: unexpected status")
)

// Client talks to one controller instance. It is safe for concurrent use.
type Client struct {
	http     *http.Client
	baseURL  string
	clientID string
	timeout  time.Duration
}

// New creates a client. A zero timeout leaves request deadlines to the caller.
func New(baseURL string, timeout time.Duration, clientID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:     &http.Client{},
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		timeout:  timeout,
	}
}

// BaseURL returns the controller address.
func (c *Client) BaseURL() string { return c.baseURL }

// ─────────────────────────────────────────────────────────────────────────────
// Polling
// ─────────────────────────────────────────────────────────────────────────────

// State fetches the current session snapshot. Decoding is tolerant: a
// malformed field keeps its zero value and clears its Has* flag instead of
// failing the poll.
func (c *Client) State(ctx context.Context) (types.SessionSnapshot, error) {
	body, err := c.get(ctx, "/state")
	if err != nil {
		return types.SessionSnapshot{}, err
	}
	return DecodeSnapshot(body)
}

// EEG fetches the latest telemetry batch. It returns ErrNotReady when the
// controller answers {"ok": false}.
func (c *Client) EEG(ctx context.Context) (types.TelemetryFrame, error) {
	body, err := c.get(ctx, "/eeg")
	if err != nil {
		return types.TelemetryFrame{}, err
	}

	var frame types.TelemetryFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		return types.TelemetryFrame{}, fmt.Errorf("unmarshal eeg: %w", err)
	}
	if !frame.OK {
		return types.TelemetryFrame{}, ErrNotReady
	}
	return frame, nil
}

// Quality fetches the latest signal-quality report.
func (c *Client) Quality(ctx context.Context) (types.QualityFrame, error) {
	body, err := c.get(ctx, "/quality")
	if err != nil {
		return types.QualityFrame{}, err
	}

	var q types.QualityFrame
	if err := json.Unmarshal(body, &q); err != nil {
		return types.QualityFrame{}, fmt.Errorf("unmarshal quality: %w", err)
	}
	return q, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

type readyRequest struct {
	RefreshHz int `json:"refresh_hz"`
}

// Ready reports the measured display refresh rate.
func (c *Client) Ready(ctx context.Context, refreshHz int) error {
	return c.post(ctx, "/ready", readyRequest{RefreshHz: refreshHz})
}

// SendEvent forwards a user action.
func (c *Client) SendEvent(ctx context.Context, ev types.Event) error {
	if !ev.Action.Valid() {
		return fmt.Errorf("send event: unknown action %q", ev.Action)
	}
	return c.post(ctx, "/event", ev)
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, path, jsonBody)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, jsonBody []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if jsonBody != nil {
		reqBody = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.clientID != "" {
		req.Header.Set(ClientIDHeader, c.clientID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: %w: %d - %s", method, path, ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
