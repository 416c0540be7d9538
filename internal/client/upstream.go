// Package client provides the HTTP client for the upstream Flask service.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"campusride-relay/internal/config"
	"campusride-relay/internal/metrics"
	"campusride-relay/internal/model"
)

// ErrResponseTooLarge is returned when the upstream body exceeds upstream.max_response_bytes.
var ErrResponseTooLarge = errors.New("upstream response body too large")

// UpstreamClient sends requests to the upstream service.
type UpstreamClient struct {
	httpClient       *http.Client
	logger           *slog.Logger
	metrics          *metrics.Metrics
	maxResponseBytes int64
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:           logger.With("component", "upstream_client"),
		metrics:          m,
		maxResponseBytes: cfg.Upstream.MaxResponseBytes,
	}
}

// Do executes an HTTP request against the upstream and returns the fully
// read response. The upstream body is always drained and closed.
func (c *UpstreamClient) Do(req *http.Request) (*model.RelayResponse, error) {
	c.logger.Debug("upstream request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		c.observe(method, start, "")
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := c.readBody(resp.Body)
	c.observe(method, start, strconv.Itoa(resp.StatusCode))
	if err != nil {
		return nil, err
	}

	return &model.RelayResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Send builds a request bound to ctx and executes it. A non-nil body is
// sent as application/json.
func (c *UpstreamClient) Send(ctx context.Context, method, url string, body io.Reader) (*model.RelayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.Do(req)
}

func (c *UpstreamClient) readBody(r io.Reader) ([]byte, error) {
	if c.maxResponseBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upstream body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if int64(len(body)) > c.maxResponseBytes {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}

// observe records latency and, when a status is known, the response count.
func (c *UpstreamClient) observe(method string, start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if status != "" {
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}
}
