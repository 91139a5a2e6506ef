package graphhopper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
)

// Client talks to a GraphHopper routing instance over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	session *http.Client
}

// NewClient constructs a routing client. timeout bounds each Route call; the
// engine is the slowest dependency of the live session, so an unbounded call
// would stall the whole connection.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		session: &http.Client{Timeout: timeout},
	}
}

// Route requests a path computation. Transient failures (429 credit
// exhaustion, 5xx, network errors) are retried with exponential backoff while
// respecting context cancellation; terminal failures surface an *EngineError.
func (c *Client) Route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal route request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.postWithRetry(ctx, c.routeEndpoint(), payload)
	if err != nil {
		return nil, err
	}

	var out RouteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode route response: %w", err)
	}
	if len(out.Paths) == 0 {
		return nil, &EngineError{StatusCode: http.StatusOK, Message: "no paths in response"}
	}
	out.Raw = body

	return &out, nil
}

func (c *Client) routeEndpoint() string {
	endpoint := c.baseURL + "/route"
	if c.apiKey != "" {
		endpoint += "?" + url.Values{"key": {c.apiKey}}.Encode()
	}
	return endpoint
}

// postWithRetry POSTs the payload, retrying transient failures with
// exponential backoff.
func (c *Client) postWithRetry(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	backoff := initialBackoff

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := c.post(ctx, endpoint, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &EngineError{
			StatusCode: resp.StatusCode,
			Message:    engineMessage(body),
		}
	}

	return body, nil
}

// engineMessage extracts the engine's "message" field, falling back to the
// raw body.
func engineMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

func isRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
