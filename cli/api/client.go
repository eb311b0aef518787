// Package api is the HTTP client of a running agent's diagnostics server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/edge-sentinel/agent/engine/infra/server/routes"
	"github.com/edge-sentinel/agent/engine/infra/sqlite"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/go-resty/resty/v2"
)

const (
	defaultRetries = 2
	retryWait      = 100 * time.Millisecond
	retryMaxWait   = time.Second
)

// Client talks to the diagnostics server of a running agent.
type Client struct {
	client  *resty.Client
	baseURL string
}

// Status is the last update outcome as served by the agent.
type Status struct {
	twinconfig.UpdateOutcome
	Mode      string   `json:"mode,omitempty"`
	Applied   bool     `json:"applied"`
	Rejected  []string `json:"rejected"`
	Namespace string   `json:"namespace"`
}

// History is a page of persisted update attempts, newest first.
type History struct {
	Entries []sqlite.Entry `json:"entries"`
	Limit   int            `json:"limit"`
}

// Error is the error payload returned by the diagnostics server.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type errorEnvelope struct {
	Error *Error `json:"error"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// Option customizes a Client.
type Option func(*resty.Client)

// WithRetries overrides how many times failed requests are retried.
func WithRetries(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// NewClient builds a client for the server described by cfg.
func NewClient(cfg *config.ServerConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server configuration is required")
	}
	baseURL, err := BaseURL(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientForURL(baseURL, cfg.Timeout, opts...)
}

// NewClientForURL builds a client for an absolute API base URL.
func NewClientForURL(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute, got: %s", baseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base URL scheme must be http or https, got: %s", parsed.Scheme)
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(defaultRetries).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		SetError(&errorEnvelope{})
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.AddRetryCondition(retryCondition)
	for _, opt := range opts {
		opt(client)
	}
	return &Client{client: client, baseURL: baseURL}, nil
}

// BaseURL returns the versioned API root of the server described by cfg.
func BaseURL(cfg *config.ServerConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("server host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return "", fmt.Errorf("server port out of range: %d", cfg.Port)
	}
	host := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return "http://" + host + routes.Base(), nil
}

// BaseURL returns the API root the client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code == http.StatusBadGateway || code == http.StatusGatewayTimeout
}

// Status fetches the outcome of the agent's last update attempt.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out envelope[Status]
	if err := c.get(ctx, "/twin/status", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	if out.Data.Rejected == nil {
		out.Data.Rejected = []string{}
	}
	return &out.Data, nil
}

// Snapshot fetches the active configuration values.
func (c *Client) Snapshot(ctx context.Context) (json.RawMessage, error) {
	var out envelope[json.RawMessage]
	if err := c.get(ctx, "/twin/snapshot", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return out.Data, nil
}

// Reported fetches the reported document exactly as the agent renders it.
func (c *Client) Reported(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.client.R().SetContext(ctx).Get("/twin/reported")
	if err != nil {
		return nil, fmt.Errorf("failed to get reported configuration: %w", err)
	}
	if err := responseError(resp); err != nil {
		return nil, fmt.Errorf("failed to get reported configuration: %w", err)
	}
	return json.RawMessage(resp.Body()), nil
}

// History fetches up to limit persisted attempts. A limit of zero uses the server default.
func (c *Client) History(ctx context.Context, limit int) (*History, error) {
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var out envelope[History]
	if err := c.get(ctx, "/twin/history", params, &out); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return &out.Data, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := responseError(resp); err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("API request completed", "path", path, "status", resp.StatusCode())
	return nil
}

func responseError(resp *resty.Response) error {
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}
	if env, ok := resp.Error().(*errorEnvelope); ok && env != nil && env.Error != nil {
		env.Error.StatusCode = resp.StatusCode()
		return env.Error
	}
	return &Error{
		StatusCode: resp.StatusCode(),
		Code:       http.StatusText(resp.StatusCode()),
		Message:    resp.String(),
	}
}
