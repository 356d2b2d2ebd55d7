// Package apiclient is a JSON-over-HTTP client with per-attempt timeouts and
// linear-backoff retry.
//
// Request never returns a Go error: every failure is reported through the
// Error field of the Response, so callers handle one shape of result.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Error codes produced by the client itself.
const (
	CodeNetworkError = "NETWORK_ERROR"
	CodeHTTPError    = "HTTP_ERROR"
	CodeEncodeError  = "ENCODE_ERROR"
	CodeDecodeError  = "DECODE_ERROR"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Error is the structured failure carried by a Response.
type Error struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Status  int             `json:"status"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsNetwork reports whether the failure happened before any HTTP response
// arrived. These are the failures a UI should offer to retry.
func (e *Error) IsNetwork() bool {
	return e != nil && e.Code == CodeNetworkError
}

// Response is the outcome of a request. Exactly one of Data and Error is
// meaningful: Error is nil on success.
type Response struct {
	Data   json.RawMessage
	Error  *Error
	Status int
}

// RequestConfig customizes a single request. Zero values take the client
// defaults.
type RequestConfig struct {
	Method        string
	Body          any
	Headers       map[string]string
	Timeout       time.Duration
	Retry         *bool
	RetryAttempts int
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	// Doer defaults to http.DefaultClient.
	Doer Doer
	// Sleep waits between attempts; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Metrics may be nil.
	Metrics *Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client wraps an HTTP transport with timeout and retry handling.
type Client struct {
	baseURL       string
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	doer          Doer
	sleep         func(ctx context.Context, d time.Duration) error
	metrics       *Metrics
	logger        *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		timeout:       opts.Timeout,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		doer:          opts.Doer,
		sleep:         opts.Sleep,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = 1
	}
	if c.doer == nil {
		c.doer = http.DefaultClient
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Bool returns a pointer to b, for RequestConfig.Retry.
func Bool(b bool) *bool { return &b }

// Get issues a GET request with default settings.
func (c *Client) Get(ctx context.Context, endpoint string) Response {
	return c.Request(ctx, endpoint, RequestConfig{Method: http.MethodGet})
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) Response {
	return c.Request(ctx, endpoint, RequestConfig{Method: http.MethodPost, Body: body})
}

// Request performs endpoint with the given config.
//
// Each attempt gets its own timeout. A non-2xx response is returned at once
// and never retried. Transport failures are retried after RetryDelay*n
// (n = attempts so far) unless retry is disabled or the failure was a
// timeout. When attempts run out the result has Status 0 and code
// NETWORK_ERROR.
func (c *Client) Request(ctx context.Context, endpoint string, cfg RequestConfig) Response {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	retry := cfg.Retry == nil || *cfg.Retry
	attempts := 1
	if retry {
		attempts = cfg.RetryAttempts
		if attempts <= 0 {
			attempts = c.retryAttempts
		}
	}

	var body []byte
	if cfg.Body != nil {
		b, err := json.Marshal(cfg.Body)
		if err != nil {
			return Response{Error: &Error{Message: err.Error(), Code: CodeEncodeError}}
		}
		body = b
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.do(ctx, method, endpoint, body, cfg.Headers, timeout)
		if err == nil {
			c.metrics.observe(method, resp.Error, time.Since(start))
			return resp
		}
		lastErr = err

		if isTimeout(err) || ctx.Err() != nil || attempt == attempts {
			c.logger.Warn("API request failed",
				"method", method,
				"endpoint", endpoint,
				"attempt", attempt,
				"error", err,
			)
			break
		}

		delay := c.retryDelay * time.Duration(attempt)
		c.logger.Debug("Retrying API request",
			"method", method,
			"endpoint", endpoint,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		c.metrics.retried()
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	netErr := &Error{
		Message: "Network error. Please check your connection and try again.",
		Code:    CodeNetworkError,
		Status:  0,
	}
	if lastErr != nil {
		netErr.Details, _ = json.Marshal(map[string]string{"cause": lastErr.Error()})
	}
	c.metrics.observe(method, netErr, time.Since(start))
	return Response{Error: netErr, Status: 0}
}

// do performs one attempt. It returns a Go error only for transport failures;
// HTTP error statuses come back as a Response.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, headers map[string]string, timeout time.Duration) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rdr)
	if err != nil {
		return Response{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.doer.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Response{Status: res.StatusCode, Error: parseError(res.StatusCode, data)}, nil
	}
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return Response{Data: data, Status: res.StatusCode}, nil
}

// parseError builds an Error from a non-2xx body. Bodies of the form
// {"error": "...", "message": "...", "code": "..."} are understood; anything
// else is kept verbatim in Details when it is JSON.
func parseError(status int, data []byte) *Error {
	e := &Error{
		Message: http.StatusText(status),
		Code:    CodeHTTPError,
		Status:  status,
	}
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if json.Valid(data) {
		e.Details = json.RawMessage(data)
		if err := json.Unmarshal(data, &body); err == nil {
			switch v := body.Error.(type) {
			case string:
				if v != "" {
					e.Message = v
				}
			case map[string]any:
				if m, ok := v["message"].(string); ok && m != "" {
					e.Message = m
				}
				if code, ok := v["code"].(string); ok && code != "" {
					e.Code = code
				}
			}
			if body.Message != "" {
				e.Message = body.Message
			}
			if body.Code != "" {
				e.Code = body.Code
			}
		}
	} else if s := strings.TrimSpace(string(data)); s != "" {
		e.Message = s
	}
	return e
}

// isTimeout reports whether err is a per-attempt timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Decode unmarshals a successful response into T. A failed response's error
// is passed through unchanged.
func Decode[T any](resp Response) (T, *Error) {
	var v T
	if resp.Error != nil {
		return v, resp.Error
	}
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		return v, &Error{Message: err.Error(), Code: CodeDecodeError, Status: resp.Status}
	}
	return v, nil
}
