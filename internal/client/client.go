// Package client dispatches request intents to the scheduling API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/request"
	"github.com/noah-isme/guardguys-scheduler/pkg/config"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
)

const contentTypeJSON = "application/json"

// Doer performs HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives the outcome of every dispatched intent.
type Observer interface {
	ObserveAPIRequest(method, intent string, status int, duration time.Duration)
}

// Client executes intents against a fixed base address. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	baseURL string
	http    Doer
	logger  *zap.Logger
	metrics Observer
}

// Result is the outcome of an asynchronous dispatch.
type Result struct {
	Body []byte
	Err  error
}

// New constructs a Client. A nil httpClient gets a default client honouring cfg.Timeout.
func New(cfg config.APIConfig, httpClient Doer, logger *zap.Logger, metrics Observer) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
		metrics: metrics,
	}
}

// BaseURL returns the address every intent path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Execute performs the HTTP call described by intent and returns the raw
// response body on a 2xx status. Decoding is left to the caller.
func (c *Client) Execute(ctx context.Context, intent request.Intent) ([]byte, error) {
	req, err := request.Build(intent)
	if err != nil {
		return nil, appErrors.WithStatus(appErrors.ErrUnknown, 0, err)
	}

	target := c.baseURL + req.Path + req.QueryString()
	if err := validateURL(target); err != nil {
		return nil, appErrors.WithStatus(appErrors.ErrInvalidURL, 0, err)
	}

	var body io.Reader
	if req.Placement == request.PlacementBody && req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, appErrors.WithStatus(appErrors.ErrInvalidURL, 0, err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, time.Since(start), err)
		return nil, appErrors.WithStatus(appErrors.ErrNetworkFailure, 0, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		c.observe(req, 0, duration, err)
		return nil, appErrors.WithStatus(appErrors.ErrNetworkFailure, 0, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		c.observe(req, resp.StatusCode, duration, nil)
		return payload, nil
	}

	failure := classify(resp.StatusCode, payload)
	c.observe(req, resp.StatusCode, duration, failure)
	return nil, failure
}

// Go runs Execute in its own goroutine. The channel receives exactly one
// Result and is never closed early; callers may stop waiting at any time.
func (c *Client) Go(ctx context.Context, intent request.Intent) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		body, err := c.Execute(ctx, intent)
		out <- Result{Body: body, Err: err}
	}()
	return out
}

func (c *Client) observe(req request.Request, status int, duration time.Duration, err error) {
	if c.metrics != nil {
		c.metrics.ObserveAPIRequest(req.Method, string(req.Kind), status, duration)
	}

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("intent", string(req.Kind)),
		zap.Int("status", status),
		zap.Duration("latency", duration),
	}
	if err != nil {
		c.logger.Warn("api request failed", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("api request", fields...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
