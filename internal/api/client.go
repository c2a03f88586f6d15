// Package api is the client for the essay-review backend's /api endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"essayreview/internal/logger"
	"essayreview/internal/model"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorDetail     = 4096
	requestIDHeader    = "X-Request-ID"
)

// Client talks to the backend over HTTP.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	requestTimeout  time.Duration // Catalog and permission calls
	analysisTimeout time.Duration // 0 means no timeout
	log             *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestTimeout bounds the catalog and permission calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// WithAnalysisTimeout bounds run_analysis. Zero disables the bound.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(c *Client) { c.analysisTimeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		requestTimeout: defaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithComponent("api")
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type toolsResponse struct {
	Tools []string `json:"tools"`
}

type allowedResponse struct {
	Allowed []string `json:"allowed"`
}

// GetAllTools fetches the full tool catalog.
func (c *Client) GetAllTools(ctx context.Context) ([]string, error) {
	var out toolsResponse
	if err := c.getJSON(ctx, "get_all_tools", "/api/get_all_tools", &out); err != nil {
		return nil, err
	}
	if out.Tools == nil {
		return []string{}, nil
	}
	return out.Tools, nil
}

// GetAllowedTools fetches the tools permitted at level.
func (c *Client) GetAllowedTools(ctx context.Context, level model.UsageLevel) ([]string, error) {
	q := url.Values{}
	q.Set("aiLevel", strconv.Itoa(int(level)))

	var out allowedResponse
	if err := c.getJSON(ctx, "get_allowed_tools", "/api/get_allowed_tools?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Allowed == nil {
		return []string{}, nil
	}
	return out.Allowed, nil
}

// RunAnalysis submits one analysis request and decodes the result.
func (c *Client) RunAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	const op = "run_analysis"

	if req.Tools == nil {
		req.Tools = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	if c.analysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.analysisTimeout)
		defer cancel()
	}

	var out model.AnalysisResult
	if err := c.do(ctx, op, http.MethodPost, "/api/run_analysis", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With("op", op, "requestID", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("backend call timed out", "elapsed", time.Since(start))
		} else {
			log.Warn("backend call failed", "error", err)
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail))
		log.Warn("backend returned error status", "status", resp.StatusCode)
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Warn("failed to decode backend response", "error", err)
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	log.Debug("backend call finished", "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}
