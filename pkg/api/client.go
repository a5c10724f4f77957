// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package api is a client for the backend's REST endpoints: the controller
// list and the paginated temperature log.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Thermoquad/anemostat/pkg/blower"
	"github.com/Thermoquad/anemostat/pkg/logquery"
)

// Endpoint paths relative to the API base URL.
const (
	PathMasters         = "/api/masters"
	PathTemperatureLogs = "/api/temperature/logs"
)

// Defaults
const (
	DefaultTimeout      = 10 * time.Second
	DefaultBreakerFails = 3
	DefaultBreakerOpen  = 15 * time.Second
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("GET %s: %s: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Client talks to the REST collaborator.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	fails   uint32
	open    time.Duration
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(fails uint32, open time.Duration) Option {
	return func(c *Client) {
		if fails > 0 {
			c.fails = fails
		}
		if open > 0 {
			c.open = open
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the API at baseURL (scheme and host, optionally a
// path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported API URL scheme: %q (use http:// or https://)", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: missing host", baseURL)
	}

	c := &Client{
		base:    u,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		fails:   DefaultBreakerFails,
		open:    DefaultBreakerOpen,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    u.Host,
		Timeout: c.open,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.fails
		},
		// A 4xx is the caller's problem, not the backend's health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed", "backend", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Masters lists the known controllers.
func (c *Client) Masters(ctx context.Context) ([]blower.Master, error) {
	var masters []blower.Master
	if err := c.get(ctx, PathMasters, nil, &masters); err != nil {
		return nil, err
	}
	return masters, nil
}

// TemperatureLogs fetches one page of historical temperature rows.
func (c *Client) TemperatureLogs(ctx context.Context, q logquery.Query) (blower.TemperatureLogPage, error) {
	var page blower.TemperatureLogPage
	if err := c.get(ctx, PathTemperatureLogs, q.Values(), &page); err != nil {
		return blower.TemperatureLogPage{}, err
	}
	return page, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// get performs one GET through the breaker and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, path string, query url.Values, v interface{}) error {
	target := c.endpoint(path, query)

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.fetch(ctx, target, v)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("GET %s: %w: %v", target, ErrUnavailable, err)
	}
	return err
}

func (c *Client) fetch(ctx context.Context, target string, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request", "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        target,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", target, err)
	}
	return nil
}
