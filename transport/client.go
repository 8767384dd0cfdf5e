// Package transport talks to the inspection REST API.
//
// It attaches the bearer token and a request id to every call, turns transport
// failures and error bodies into apierr errors, and normalizes the list envelopes
// the backend returns into listquery.PageResult.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-resource-query/apierr"
)

const tracerName = "github.com/goliatone/go-resource-query/transport"

// HeaderRequestID carries the id generated for each request.
const HeaderRequestID = "X-Request-ID"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    TokenSource
	userAgent string
	log       *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithTracer replaces the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, goerrors.New("base URL must be absolute", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"base_url": baseURL})
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c, nil
}

// BaseURL returns the base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Get sends a GET with query parameters.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, params, nil)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete sends a DELETE.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one request and returns the body of a 2xx response. Every error is
// an apierr error: the request never completing is a network error, an error
// body is a validation or general error.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	target := c.resolve(path, params)
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "transport."+strings.ToLower(method), trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", target.Path),
			attribute.String("request.id", requestID),
		))
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, c.fail(span, goerrors.Wrap(err, goerrors.CategoryBadInput, "encode request body"))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, c.fail(span, goerrors.Wrap(err, goerrors.CategoryInternal, "build request"))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, c.fail(span, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method),
			zap.String("path", target.Path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, c.fail(span, apierr.Network(err, "could not reach the server"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(span, apierr.Network(err, "response was interrupted"))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	c.log.Debug("request completed",
		zap.String("method", method),
		zap.String("path", target.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("took", time.Since(start)),
	)

	if err := DecodeError(resp.StatusCode, raw); err != nil {
		return nil, c.fail(span, err)
	}
	return raw, nil
}

func (c *Client) resolve(path string, params url.Values) *url.URL {
	u := *c.baseURL
	rel := strings.TrimLeft(path, "/")
	if parsed, err := url.Parse(rel); err == nil {
		// keep escaped segments such as an id containing a slash
		u.Path = c.baseURL.Path + "/" + parsed.Path
		u.RawPath = c.baseURL.EscapedPath() + "/" + parsed.EscapedPath()
	} else {
		u.Path = c.baseURL.Path + "/" + rel
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return &u
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, apierr.Message(err))
	return err
}
