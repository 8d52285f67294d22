package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/catalogsync/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultPageParam and DefaultSizeParam name the pagination query parameters.
	DefaultPageParam = "page"
	DefaultSizeParam = "limit"
)

// Config describes the source API.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	PageSize int

	// RequestsPerSecond throttles outgoing requests. Zero means unlimited.
	RequestsPerSecond float64

	// Retry applies to timeouts and connection failures only.
	Retry core.RetryPolicy
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		PageSize: 100,
		Retry:    core.DefaultRetryPolicy(),
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, whose timeout comes from Config.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithPageParams renames the page and page-size query parameters.
func WithPageParams(page, size string) Option {
	return func(c *Client) {
		c.pageParam = page
		c.sizeParam = size
	}
}

// Client reads products from an HTTP JSON API.
type Client struct {
	http      *http.Client
	baseURL   *url.URL
	apiKey    string
	pageSize  int
	pageParam string
	sizeParam string
	limiter   *rate.Limiter
	retry     core.RetryPolicy
	logger    *slog.Logger
}

var _ Source = (*Client)(nil)

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	if cfg.PageSize <= 0 {
		return nil, ErrInvalidPageSize
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("source: invalid base URL: %w", err)
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = core.DefaultRetryPolicy()
	}
	if retry.Retryable == nil {
		retry.Retryable = IsTransient
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   base,
		apiKey:    cfg.APIKey,
		pageSize:  cfg.PageSize,
		pageParam: DefaultPageParam,
		sizeParam: DefaultSizeParam,
		limiter:   limiter,
		retry:     retry,
		logger:    slog.Default().With("component", "source-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PageSize returns the configured page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

func (c *Client) resolve(endpoint string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	return u.String()
}

// get performs one GET with retries and returns the decoded body.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (any, error) {
	target := c.resolve(endpoint)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body any
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, err = c.do(ctx, target)
		return err
	})
	return body, err
}

func (c *Client) do(ctx context.Context, target string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("source request failed", "url", target, "err", err)
		return nil, fmt.Errorf("source request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &ResponseError{StatusCode: res.StatusCode, Body: string(msg)}
	}
	return decodeJSON(res.Body)
}

// FetchPage returns one unwrapped page.
func (c *Client) FetchPage(ctx context.Context, endpoint string, page, limit int, params url.Values) ([]core.RawRecord, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set(c.pageParam, strconv.Itoa(page))
	query.Set(c.sizeParam, strconv.Itoa(limit))

	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	return Unwrap(body), nil
}

// FetchAll pages from page 1 until a page comes back empty or short.
func (c *Client) FetchAll(ctx context.Context, endpoint string, params url.Values) ([]core.RawRecord, error) {
	var all []core.RawRecord
	for page := 1; ; page++ {
		c.logger.Info("fetching page", "endpoint", endpoint, "page", page)
		records, err := c.FetchPage(ctx, endpoint, page, c.pageSize, params)
		if err != nil {
			return all, fmt.Errorf("page %d: %w", page, err)
		}
		if len(records) == 0 {
			c.logger.Info("no more products", "page", page)
			break
		}
		all = append(all, records...)
		if len(records) < c.pageSize {
			c.logger.Info("last page reached", "page", page)
			break
		}
	}
	c.logger.Info("extraction complete", "endpoint", endpoint, "records", len(all))
	return all, nil
}

// FetchProduct returns the record at endpoint/sku, or nil for a 404.
func (c *Client) FetchProduct(ctx context.Context, endpoint, sku string) (core.RawRecord, error) {
	body, err := c.get(ctx, strings.TrimSuffix(endpoint, "/")+"/"+url.PathEscape(sku), nil)
	if err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if m, ok := body.(map[string]any); ok && len(m) > 0 {
		return core.RawRecord(m), nil
	}
	records := Unwrap(body)
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Ping issues one GET against the base URL without retries. Any answer
// below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("source request: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, io.LimitReader(res.Body, maxErrorBody))
	if res.StatusCode >= http.StatusInternalServerError {
		return &ResponseError{StatusCode: res.StatusCode}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
