// Package graphql is a GraphQL-over-HTTP client with a result cache and an
// explicit mutation invalidation policy.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/logger"
)

// FetchPolicy controls how Query uses the cache.
type FetchPolicy int

const (
	// CacheFirst serves a fresh cached result when one exists.
	CacheFirst FetchPolicy = iota
	// NetworkOnly always hits the endpoint and refreshes the cache.
	NetworkOnly
)

type requestIDKey struct{}

// WithRequestID makes requests sent with ctx carry id as their X-Request-ID
// instead of a generated one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Options configures a Client.
type Options struct {
	Endpoint     string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
	CacheTTL     time.Duration
	Invalidation InvalidationPolicy

	// RetryAttempts and RetryDelay apply to operations marked Retry only.
	// Attempts below 1 mean a single attempt.
	RetryAttempts int
	RetryDelay    time.Duration
}

// Client sends GraphQL operations to a single endpoint.
type Client struct {
	http         *resty.Client
	retrying     *resty.Client
	cache        *Cache
	invalidation InvalidationPolicy
	endpoint     string
	apiKey       string
	apiKeyHeader string
	mu           sync.RWMutex

	retryAttempts atomic.Int64
}

type request struct {
	Variables     map[string]any `json:"variables,omitempty"`
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors"`
}

// NewClient creates a client for opts.Endpoint.
func NewClient(opts Options) *Client {
	hc := resty.New()
	hc.SetLogger(restyLogger{})
	hc.SetTimeout(opts.Timeout)
	hc.SetRetryCount(0)
	hc.SetHeader("Content-Type", "application/json")
	hc.SetHeader("Accept", "application/json")

	policy := opts.Invalidation
	if policy == nil {
		policy = DefaultInvalidation
	}

	c := &Client{
		http:         hc,
		retrying:     resty.New(),
		cache:        NewCache(opts.CacheTTL),
		invalidation: policy,
		endpoint:     opts.Endpoint,
		apiKey:       opts.APIKey,
		apiKeyHeader: opts.APIKeyHeader,
	}

	c.retrying.SetLogger(restyLogger{})
	c.retrying.SetHeader("Content-Type", "application/json")
	c.retrying.SetHeader("Accept", "application/json")
	c.retrying.AddRetryCondition(shouldRetry)
	c.retrying.AddRetryHook(c.logRetry)
	c.configureRetry(opts)

	return c
}

// Reconfigure swaps endpoint, credentials and timeouts. Cached results are
// dropped when the endpoint changes.
func (c *Client) Reconfigure(opts Options) {
	c.mu.Lock()
	endpointChanged := opts.Endpoint != c.endpoint
	c.endpoint = opts.Endpoint
	c.apiKey = opts.APIKey
	c.apiKeyHeader = opts.APIKeyHeader
	c.http.SetTimeout(opts.Timeout)
	c.configureRetry(opts)
	c.mu.Unlock()

	c.cache.SetTTL(opts.CacheTTL)
	if endpointChanged {
		c.cache.Clear()
	}
}

// Endpoint returns the current endpoint URL.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// CacheStats returns the result cache counters.
func (c *Client) CacheStats() CacheStats {
	return c.cache.Stats()
}

// Invalidate drops cached results of the named queries.
func (c *Client) Invalidate(ops ...string) {
	c.cache.Invalidate(ops...)
}

// Query runs a read operation and decodes its data into out.
func (c *Client) Query(ctx context.Context, op Operation, vars map[string]any, out any, policy FetchPolicy) error {
	if policy == CacheFirst {
		if data, ok := c.cache.Get(op.Name, vars); ok {
			return decodeData(op.Name, data, out)
		}
	}

	data, err := c.do(ctx, op, vars)
	if err != nil {
		return err
	}

	c.cache.Set(op.Name, vars, data)
	return decodeData(op.Name, data, out)
}

// Mutate runs a write operation, decodes its data into out, and invalidates
// the queries named by the invalidation policy. It returns those names.
func (c *Client) Mutate(ctx context.Context, op Operation, vars map[string]any, out any) ([]string, error) {
	data, err := c.do(ctx, op, vars)
	if err != nil {
		return nil, err
	}

	if err := decodeData(op.Name, data, out); err != nil {
		return nil, err
	}

	affected := c.invalidation.Affected(op.Name)
	if n := c.cache.Invalidate(affected...); n > 0 {
		logger.Debug("invalidated cached queries", "mutation", op.Name, "queries", affected, "entries", n)
	}
	return affected, nil
}

func (c *Client) do(ctx context.Context, op Operation, vars map[string]any) (json.RawMessage, error) {
	c.mu.RLock()
	endpoint, apiKey, header := c.endpoint, c.apiKey, c.apiKeyHeader
	c.mu.RUnlock()

	client := c.http
	if op.Retry {
		client = c.retrying
	}

	requestID := requestIDFrom(ctx)
	req := client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetBody(request{Query: op.Document, Variables: vars, OperationName: op.Name})
	if apiKey != "" && header != "" {
		req.SetHeader(header, apiKey)
	}

	start := time.Now()
	resp, err := req.Post(endpoint)
	if err != nil {
		logger.Warn("graphql request failed", "op", op.Name, "request_id", requestID, "error", err)
		return nil, &TransportError{Op: op.Name, Err: err}
	}

	logger.Debug("graphql request",
		"op", op.Name,
		"request_id", requestID,
		"status", resp.StatusCode(),
		"duration", time.Since(start),
	)

	var body response
	parseErr := json.Unmarshal(resp.Body(), &body)

	if parseErr == nil && len(body.Errors) > 0 {
		return nil, &QueryError{Op: op.Name, Errors: body.Errors}
	}
	if resp.IsError() {
		return nil, &TransportError{
			Op:         op.Name,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s", truncate(resp.String(), 200)),
		}
	}
	if parseErr != nil {
		return nil, &TransportError{Op: op.Name, StatusCode: resp.StatusCode(), Err: fmt.Errorf("malformed response: %w", parseErr)}
	}

	return body.Data, nil
}

func (c *Client) configureRetry(opts Options) {
	attempts := max(opts.RetryAttempts, 1)
	delay := max(opts.RetryDelay, 0)
	c.retryAttempts.Store(int64(attempts))
	c.retrying.SetTimeout(opts.Timeout)
	c.retrying.SetRetryCount(attempts - 1)
	c.retrying.SetRetryWaitTime(delay)
	c.retrying.SetRetryMaxWaitTime(delay * 4)
}

// shouldRetry retries transport failures and server errors. Cancellation and
// GraphQL errors in a 2xx response are final.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// logRetry runs after every failed attempt that matched shouldRetry,
// including the last one.
func (c *Client) logRetry(resp *resty.Response, err error) {
	if resp == nil || resp.Request == nil {
		return
	}
	attempt := resp.Request.Attempt
	limit := c.retryAttempts.Load()
	if int64(attempt) >= limit {
		return
	}

	args := []any{"attempt", attempt, "of", limit}
	if err != nil {
		args = append(args, "error", err)
	} else {
		args = append(args, "status", resp.StatusCode())
	}
	logger.Warn("graphql request failed, retrying", args...)
}

// restyLogger routes resty's own messages to the application log; stderr
// belongs to the terminal UI.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) { logger.Error(fmt.Sprintf(format, v...)) }
func (restyLogger) Warnf(format string, v ...any)  { logger.Debug(fmt.Sprintf(format, v...)) }
func (restyLogger) Debugf(format string, v ...any) { logger.Debug(fmt.Sprintf(format, v...)) }

func decodeData(op string, data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to decode data: %w", op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
