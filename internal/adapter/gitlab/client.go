// Package gitlab implements the scm.Client port against the GitLab REST API v4.
package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/StackForge/internal/config"
	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/port/scm"
	"github.com/Strob0t/StackForge/internal/resilience"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 2048

// Compile-time interface check.
var _ scm.Client = (*Client)(nil)

// Client talks to one GitLab instance with a static private token.
type Client struct {
	baseURL    string
	token      string
	cfg        config.GitLab
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a GitLab client. Every request is bounded by cfg.Timeout.
// A nil breaker disables circuit breaking.
func NewClient(cfg config.GitLab, breaker *resilience.Breaker) *Client {
	if breaker != nil {
		breaker.TripOn(trips)
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/") + "/api/v4",
		token:   cfg.Token,
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}
}

// DefaultBranch returns the configured default branch.
func (c *Client) DefaultBranch() string { return c.cfg.DefaultBranch }

// apiError is a non-2xx response.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gitlab API %d: %s", e.status, e.body)
}

// statusOf returns the HTTP status of a failed call, or 0 for transport errors.
func statusOf(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.status
	}
	return 0
}

// trips reports whether err indicates an unhealthy remote.
func trips(err error) bool {
	s := statusOf(err)
	return s == 0 || s >= 500
}

// call performs one JSON request. payload and out may be nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	run := func() error { return c.doRequest(ctx, method, reqURL, body, out) }
	if c.breaker == nil {
		return run()
	}
	return c.breaker.Execute(run)
}

func (c *Client) doRequest(ctx context.Context, method, reqURL string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL is built from the configured base URL
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gitlab parse response: %w", err)
	}
	return nil
}

// upstream converts a failed call into the domain error family.
func upstream(kind, op string, err error) error {
	ue := &domain.UpstreamError{Kind: kind, Op: op}
	var ae *apiError
	if errors.As(err, &ae) {
		ue.StatusCode = ae.status
		ue.Body = ae.body
		return ue
	}
	ue.Err = err
	return ue
}

func projectPath(id int64, rest string) string {
	return fmt.Sprintf("/projects/%d%s", id, rest)
}

func groupPath(id int64, rest string) string {
	return fmt.Sprintf("/groups/%d%s", id, rest)
}
