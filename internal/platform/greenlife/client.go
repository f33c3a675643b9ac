// Package greenlife is the HTTP client for the GreenLife REST backend. Every
// call is traced, measured and guarded by a circuit breaker. Reads are
// retried with backoff; mutations are sent exactly once.
package greenlife

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/greenlife/greenlife-admin/internal/platform/resilience"
)

var tracer = otel.Tracer("greenlife")

const maxBodyBytes = 16 << 20

// Recorder receives one observation per upstream round trip.
type Recorder interface {
	ObserveUpstream(method, path string, status int, elapsed time.Duration)
}

// Config holds connection settings for the backend.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// Client talks to the GreenLife backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	retry      resilience.RetryConfig
	recorder   Recorder
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) {
		if cb != nil {
			c.breaker = cb
		}
	}
}

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker: resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Name:         "greenlife",
			IsSuccessful: breakerSuccess,
		}),
		retry: resilience.RetryConfig{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			Retryable:      retryable,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches path and decodes the JSON answer into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.call(ctx, http.MethodPost, path, query, body, out)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.call(ctx, http.MethodPut, path, query, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodDelete, path, query, nil, out)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := tracer.Start(ctx, "greenlife."+strings.ToLower(method), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("greenlife.path", path))

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("greenlife: encode %s: %w", path, err)
		}
	}

	var data []byte
	attempt := func() error {
		raw, err := c.roundTrip(ctx, method, path, query, payload)
		if err != nil {
			return err
		}
		data = raw
		return nil
	}

	_, err := c.breaker.Execute(func() (any, error) {
		if method == http.MethodGet {
			return nil, resilience.RetryWithBackoff(ctx, c.retry, attempt)
		}
		return nil, attempt()
	})
	if err != nil {
		err = breakerError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decode(data, out); err != nil {
		return fmt.Errorf("greenlife: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, start)
		return nil, fmt.Errorf("greenlife: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.observe(method, path, resp.StatusCode, start)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("greenlife: read %s: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

// Stream is an open upstream body, used for receipt images and CSV exports.
// The caller must close Body.
type Stream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}

// Open issues a GET and hands back the unread body.
func (c *Client) Open(ctx context.Context, path string, query url.Values) (*Stream, error) {
	ctx, span := tracer.Start(ctx, "greenlife.open", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("greenlife.path", path))

	result, err := c.breaker.Execute(func() (any, error) {
		req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.observe(http.MethodGet, path, 0, start)
			return nil, fmt.Errorf("greenlife: GET %s: %w", path, err)
		}
		c.observe(http.MethodGet, path, resp.StatusCode, start)
		if resp.StatusCode >= http.StatusBadRequest {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			_ = resp.Body.Close()
			return nil, statusError(resp.StatusCode, data)
		}
		return resp, nil
	})
	if err != nil {
		err = breakerError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	resp := result.(*http.Response)
	stream := &Stream{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		stream.Filename = params["filename"]
	}
	return stream, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("greenlife: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveUpstream(method, path, status, time.Since(start))
	}
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// decode unmarshals data into out, unwrapping a {"data": ...} style envelope
// when the payload does not fit out directly.
func decode(data []byte, out any) error {
	err := json.Unmarshal(data, out)
	if err == nil {
		return nil
	}
	var envelope map[string]json.RawMessage
	if json.Unmarshal(data, &envelope) != nil {
		return err
	}
	for _, key := range []string{"data", "content", "items", "result"} {
		if inner, ok := envelope[key]; ok {
			return json.Unmarshal(inner, out)
		}
	}
	return err
}
