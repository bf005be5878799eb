package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carbonlab/perfbench/internal/bench"
	"github.com/carbonlab/perfbench/internal/metrics"
	"github.com/carbonlab/perfbench/internal/tracing"
)

const maxBodyReadSize = 1024 * 1024

// HTTPError describes a response whose status did not match the
// accepted status for the call.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client executes bench requests against a single base URL. It
// implements bench.Requester.
type Client struct {
	http           *http.Client
	base           *url.URL
	header         http.Header
	defaultTimeout time.Duration
	collector      *metrics.Collector
	tracer         trace.Tracer
	propagate      bool
	onFailure      func(req bench.Request, o bench.Outcome)
}

// Option customizes a Client.
type Option func(*Client)

// WithCollector mirrors every outcome into a live metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(cl *Client) { cl.collector = c }
}

// WithHeaders sets default headers applied to every request. Per-request
// headers take precedence.
func WithHeaders(h map[string]string) Option {
	return func(cl *Client) {
		for k, v := range h {
			key := http.CanonicalHeaderKey(strings.TrimSpace(k))
			if key == "" {
				continue
			}
			cl.header.Set(key, v)
		}
	}
}

// WithTracer wraps each request in a client span. When propagate is
// true the W3C trace context is injected toward the target.
func WithTracer(t trace.Tracer, propagate bool) Option {
	return func(cl *Client) {
		cl.tracer = t
		cl.propagate = propagate
	}
}

// WithFailureHook invokes fn for every non-success outcome.
func WithFailureHook(fn func(req bench.Request, o bench.Outcome)) Option {
	return func(cl *Client) { cl.onFailure = fn }
}

// New builds a Client for the given base URL. timeout is the default
// per-call timeout; individual requests may override it.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in base URL", base.Scheme)
	}

	cl := &Client{
		http:           newHTTPClient(timeout),
		base:           base,
		header:         http.Header{},
		defaultTimeout: timeout,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// Do executes one request. It never returns an error: timeouts,
// connection failures and unexpected statuses are all folded into the
// outcome so a failing call cannot abort its lane.
func (c *Client) Do(ctx context.Context, req bench.Request) bench.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var span trace.Span
	if c.tracer != nil {
		ctx, span = tracing.StartRequestSpan(ctx, c.tracer, req.Method, req.Path)
	}

	outcome := c.do(ctx, req)

	if span != nil {
		var spanErr error
		if !outcome.Success {
			if outcome.Err != "" {
				spanErr = errors.New(outcome.Err)
			} else {
				spanErr = &HTTPError{StatusCode: outcome.StatusCode}
			}
		}
		attrs := []attribute.KeyValue{}
		if outcome.StatusCode > 0 {
			attrs = append(attrs, attribute.Int("http.response.status_code", outcome.StatusCode))
		}
		tracing.EndSpan(span, spanErr, attrs...)
	}

	if c.collector != nil {
		c.collector.Record(outcome)
	}
	if !outcome.Success && c.onFailure != nil {
		c.onFailure(req, outcome)
	}
	return outcome
}

func (c *Client) do(ctx context.Context, req bench.Request) bench.Outcome {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return bench.Outcome{Err: err.Error()}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Transport failure: no response, no latency.
		return bench.Outcome{Err: err.Error()}
	}
	latency := time.Since(start)
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	_, _ = io.Copy(io.Discard, resp.Body)
	if readErr != nil {
		return bench.Outcome{
			Latency:    latency,
			HasLatency: true,
			StatusCode: resp.StatusCode,
			Err:        fmt.Sprintf("read body: %v", readErr),
		}
	}

	if resp.StatusCode != req.ExpectedStatus() {
		// HTTP-level failure: the status code is the diagnostic.
		return bench.Outcome{
			Latency:    latency,
			HasLatency: true,
			StatusCode: resp.StatusCode,
		}
	}

	if req.ValidateBody != nil {
		if err := req.ValidateBody(body); err != nil {
			return bench.Outcome{
				Latency:    latency,
				HasLatency: true,
				StatusCode: resp.StatusCode,
				Err:        fmt.Sprintf("body: %v", err),
			}
		}
	}

	return bench.Outcome{
		Latency:    latency,
		HasLatency: true,
		StatusCode: resp.StatusCode,
		Success:    true,
	}
}

func (c *Client) build(ctx context.Context, req bench.Request) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	rel, err := url.Parse(req.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", req.Path, err)
	}
	target := c.base.ResolveReference(rel)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	for key, values := range c.header {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}
	for key, values := range req.Header {
		canonical := http.CanonicalHeaderKey(key)
		httpReq.Header.Del(canonical)
		for _, v := range values {
			httpReq.Header.Add(canonical, v)
		}
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.propagate {
		tracing.InjectHTTPHeaders(ctx, httpReq.Header)
	}

	return httpReq, nil
}

// newHTTPClient returns an *http.Client tuned for sustained load
// generation: generous idle pools and HTTP/2 where the target offers it.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// The overall timeout stays on the per-call context so individual
	// requests can override the default.
	return &http.Client{Transport: transport}
}
