// Package backend talks to the workbench API that owns project data and
// computes readiness. The board only reads from it.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/workbench/internal/upstream"
)

const (
	// DefaultTimeout bounds a single request when no http.Client is supplied.
	DefaultTimeout = 10 * time.Second
	// DefaultConcurrency bounds FetchAll fan-out.
	DefaultConcurrency = 4
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes int64 = 4 << 20
)

// ErrNotFound is wrapped by APIError for 404 responses.
var ErrNotFound = errors.New("backend: not found")

// APIError describes a non-2xx response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: %s %s: HTTP %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("backend: %s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrNotFound) match 404s.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Logger records client diagnostics. It matches logging.Logger's Printf.
type Logger interface {
	Printf(format string, args ...any)
}

// Client reads projects and readiness from the backend.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	token       string
	concurrency int
	logger      Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithConcurrency bounds the number of in-flight FetchAll requests.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend: base url must be http(s), got %q", baseURL)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	c := &Client{
		baseURL:     parsed,
		http:        &http.Client{Timeout: DefaultTimeout},
		concurrency: DefaultConcurrency,
		logger:      nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListProjects fetches GET /v1/projects.
func (c *Client) ListProjects(ctx context.Context) ([]upstream.ProjectSummary, error) {
	body, err := c.get(ctx, "v1", "projects")
	if err != nil {
		return nil, err
	}
	projects, err := upstream.DecodeProjects(body)
	if err != nil {
		return nil, err
	}
	c.logger.Printf("backend: listed %d projects", len(projects))
	return projects, nil
}

// Readiness fetches GET /v1/projects/{id}/readiness.
func (c *Client) Readiness(ctx context.Context, projectID string) (upstream.ReadinessPayload, error) {
	id := strings.TrimSpace(projectID)
	if id == "" {
		return upstream.ReadinessPayload{}, fmt.Errorf("backend: project id is required")
	}
	body, err := c.get(ctx, "v1", "projects", url.PathEscape(id), "readiness")
	if err != nil {
		return upstream.ReadinessPayload{}, err
	}
	var payload upstream.ReadinessPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return upstream.ReadinessPayload{}, fmt.Errorf("backend: project %s: %w", id, err)
	}
	return payload, nil
}

// FetchResult is the outcome of one readiness request inside FetchAll.
type FetchResult struct {
	ProjectID string
	Payload   upstream.ReadinessPayload
	Err       error
}

// FetchAll requests readiness for every id with bounded concurrency.
// Results come back in input order. Per-project failures are reported in
// FetchResult.Err; only cancellation of ctx fails the whole call.
func (c *Client) FetchAll(ctx context.Context, ids []string) ([]FetchResult, error) {
	results := make([]FetchResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			payload, err := c.Readiness(gctx, id)
			results[i] = FetchResult{ProjectID: id, Payload: payload, Err: err}
			if err != nil {
				c.logger.Printf("backend: readiness for %s failed: %v", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, segments ...string) ([]byte, error) {
	endpoint := c.baseURL.JoinPath(segments...)
	path := endpoint.EscapedPath()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Method: http.MethodGet, Path: path, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage pulls {"error": "..."} or {"detail": "..."} out of an error
// body, falling back to the trimmed text.
func errorMessage(body []byte) string {
	var envelope struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Detail != "" {
			return envelope.Detail
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
