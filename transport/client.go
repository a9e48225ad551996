package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cotovideo/client/logging"
)

const requestIDHeader = "X-Request-Id"

// Client is a thin JSON request/response wrapper over a single *http.Client. It carries
// no retry logic; retries are a caller decision.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// New constructs a Client with the provided request timeout.
func New(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// GetJSON issues a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out, nil)
}

// PostJSON issues a POST request with a JSON-encoded body and decodes the response
// into out. Extra headers, when provided, are attached to the request.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any, headers map[string]string) error {
	return c.do(ctx, http.MethodPost, url, body, out, headers)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any, headers map[string]string) error {
	start := time.Now()
	logger := c.logger
	if scoped := logging.FromContext(ctx); scoped != slog.Default() {
		logger = scoped
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &NetworkError{Op: method + " " + url, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &NetworkError{Op: method + " " + url, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method + " " + url, Err: err}
	}

	logger.Debug("request completed",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &NetworkError{Op: method + " " + url, Err: err}
	}
	return nil
}

// errorMessage extracts the {error} field the service uses for rejections.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Error
}
