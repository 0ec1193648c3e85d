package trainservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRegistrationRejected is returned when the train service refuses a
// registration. Wrapped errors carry the HTTP status and response body.
var ErrRegistrationRejected = errors.New("trainservice: registration rejected")

// maxErrorBody caps how much of a rejection body is kept for the error.
const maxErrorBody = 512

// Config holds the client settings.
type Config struct {
	// URL is the train registration endpoint.
	URL string

	// Timeout bounds each request.
	Timeout time.Duration
}

// Client talks to the external train service over HTTP.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a train service client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url: cfg.URL,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Register notifies the train service of an inbound train.
//
// The payload is forwarded as JSON exactly as received from the caller.
// A 200 or 201 response is acceptance; any other status is returned as
// ErrRegistrationRejected. Transport failures are returned unwrapped so
// callers can distinguish an unreachable service from a rejection.
func (c *Client) Register(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding train payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building train registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting train registration: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: status %d: %s", ErrRegistrationRejected, resp.StatusCode, detail)
}

// HealthCheck verifies the train service endpoint is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return fmt.Errorf("building health check request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("train service unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}
