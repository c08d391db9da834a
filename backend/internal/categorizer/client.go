package categorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/metrics"
	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
	"knowledge-weaver/backend/pkg/logger"
)

// ClientConfig configures the categorization service client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration

	// Breaker settings
	FailureRatio float64
	MinRequests  uint32
	OpenTimeout  time.Duration
}

// DefaultClientConfig returns settings for a service at baseURL
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Timeout:      10 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  3,
		OpenTimeout:  30 * time.Second,
	}
}

// Client calls a remote categorization service. Categorize requests go
// through a circuit breaker so a dead service costs nothing per capture.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewClient creates a client for cfg.BaseURL
func NewClient(cfg ClientConfig) *Client {
	log := logger.Named("categorizer")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "categorizer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: cb,
		logger:  log,
	}
}

type categorizeRequest struct {
	Content  string          `json:"content"`
	URL      string          `json:"url"`
	Metadata *notes.Metadata `json:"metadata,omitempty"`
}

// Categorize asks the service for categories. Any failure (network, non-2xx,
// malformed body, empty list, open circuit) yields ["General"]. No retries.
func (c *Client) Categorize(ctx context.Context, content string, md notes.Metadata) []string {
	body := categorizeRequest{Content: content, URL: md.URL, Metadata: &md}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var resp Response
		if err := c.do(ctx, http.MethodPost, "/categorize", body, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		outcome := metrics.OutcomeFallback
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = metrics.OutcomeRejected
		}
		metrics.CategorizationTotal.WithLabelValues("remote", outcome).Inc()
		c.logger.Warn("Categorization failed, using default", zap.Error(err))
		return Fallback()
	}

	names, ok := out.(Response).Names()
	if !ok {
		metrics.CategorizationTotal.WithLabelValues("remote", metrics.OutcomeFallback).Inc()
		c.logger.Warn("Categorization returned no categories, using default")
		return names
	}
	metrics.CategorizationTotal.WithLabelValues("remote", metrics.OutcomeOK).Inc()
	return names
}

// State reports the breaker state, for health output
func (c *Client) State() string {
	return c.breaker.State().String()
}

// Health checks the service's health endpoint
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Categories lists the service's categories
func (c *Client) Categories(ctx context.Context) ([]notes.Category, error) {
	var cats []notes.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// AddCategory creates a category. A duplicate name comes back as a 400,
// which is returned as an error and not retried.
func (c *Client) AddCategory(ctx context.Context, cat notes.Category) error {
	return c.do(ctx, http.MethodPost, "/categories", cat, nil)
}

// UpdateCategory replaces the category at index
func (c *Client) UpdateCategory(ctx context.Context, index int, cat notes.Category) error {
	return c.do(ctx, http.MethodPut, "/categories/"+strconv.Itoa(index), cat, nil)
}

// DeleteCategory removes the category at index
func (c *Client) DeleteCategory(ctx context.Context, index int) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+strconv.Itoa(index), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	url := c.baseURL + path

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.NewContextCancelled(method+" "+path, ctx.Err())
		}
		return apperrors.NewCategorizerFailed(url, 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.NewCategorizerFailed(url, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewCategorizerFailed(url, resp.StatusCode, errors.New(detail(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewCategorizerFailed(url, resp.StatusCode, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// detail pulls a human message out of an error body
func detail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
