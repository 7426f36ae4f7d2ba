// Package httpx is the shared outbound JSON client used by the billing and
// social adapters.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config configures a Client
type Config struct {
	// Service names the upstream in errors and logs
	Service string
	BaseURL string
	Timeout time.Duration
	// MaxAttempts bounds attempts for retryable failures of GET requests
	MaxAttempts int
	// RequestsPerSecond throttles outbound calls when positive
	RequestsPerSecond float64
	Logger            *logrus.Logger
}

// Request describes one outbound call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Form is sent url-encoded when set
	Form    url.Values
	Headers map[string]string
	// BasicUser and BasicPass set HTTP basic auth when BasicUser is non-empty
	BasicUser string
	BasicPass string
}

// Client performs JSON requests against one upstream
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
}

// New creates a Client. A zero timeout defaults to ten seconds.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	c := &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// BaseURL returns the configured upstream root
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// DoJSON executes req and decodes a 2xx JSON body into out (when non-nil).
// op names the call in errors.
func (c *Client) DoJSON(ctx context.Context, op string, req Request, out any) error {
	body, err := c.Do(ctx, op, req)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Service: c.cfg.Service, Op: op, Code: ErrCodeServer, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Do executes req and returns the raw 2xx body. Only GET requests are retried.
func (c *Client) Do(ctx context.Context, op string, req Request) ([]byte, error) {
	attempts := 1
	if req.Method == "" || req.Method == http.MethodGet {
		attempts = c.cfg.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.once(ctx, op, req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt == attempts || !IsRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, op string, req Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Service: c.cfg.Service, Op: op, Code: ErrCodeTimeout, Err: err}
		}
	}

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, &Error{Service: c.cfg.Service, Op: op, Code: ErrCodeValidation, Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		code := ErrCodeConnection
		if ctx.Err() != nil {
			code = ErrCodeTimeout
		}
		return nil, &Error{Service: c.cfg.Service, Op: op, Code: code, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Service: c.cfg.Service, Op: op, Code: ErrCodeConnection, Retryable: true, Err: err}
	}

	c.cfg.Logger.WithFields(logrus.Fields{
		"service":     c.cfg.Service,
		"operation":   op,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Upstream call completed")

	if classified := ClassifyStatus(c.cfg.Service, op, resp.StatusCode, body); classified != nil {
		return nil, classified
	}
	return body, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.Path
	if c.cfg.BaseURL != "" && !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.BasicUser != "" {
		httpReq.SetBasicAuth(req.BasicUser, req.BasicPass)
	}
	return httpReq, nil
}
