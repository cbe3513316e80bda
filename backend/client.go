// Package backend is the client of the upstream REST API the console fronts.
//
// Every response body goes through the decoder package. Requests are sent once;
// a failure is reported to the caller, which decides whether the user retries.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/decoder"
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

var tracer = otel.Tracer("estate-console/backend")

// maxBody caps how much of a response is read; report endpoints are large but bounded.
const maxBody = 32 << 20

// HTTPError is a non-2xx answer from the upstream backend.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

type Client struct {
	baseURL string
	timeout time.Duration
	base    http.RoundTripper
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		base:    http.DefaultTransport,
	}
}

// NewFromConfig builds a client for UPSTREAM_BASE_URL.
func NewFromConfig() *Client {
	return New(config.UpstreamBaseURL(), config.UpstreamTimeout())
}

// httpClient attaches the caller's bearer token from ctx, if any.
func (c *Client) httpClient(ctx context.Context) *http.Client {
	transport := c.base
	if token, ok := utils.GetTokenFromContext(ctx); ok && token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.base,
		}
	}
	return &http.Client{Transport: transport, Timeout: c.timeout}
}

// Do sends one request and returns the decoded, normalized body.
// An empty body yields a nil value.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, payload any) (any, error) {
	ctx, span := tracer.Start(ctx, "upstream "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("upstream.path", path),
		))
	defer span.End()

	value, err := c.do(ctx, method, path, query, payload, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return value, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, span trace.Span) (any, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &models.NetworkError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		req.Header.Set("X-Correlation-Id", cid)
	}

	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return nil, &models.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &models.NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
		if v, derr := decoder.Decode(raw); derr == nil {
			herr.Message = messageOf(v)
		}
		return nil, herr
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return decoder.Decode(raw)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, payload any) (any, error) {
	return c.Do(ctx, http.MethodPost, path, nil, payload)
}

func (c *Client) Patch(ctx context.Context, path string, payload any) (any, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, payload)
}

// Send issues a request with an arbitrary method and JSON payload.
func (c *Client) Send(ctx context.Context, method, path string, payload any) (any, error) {
	return c.Do(ctx, strings.ToUpper(method), path, nil, payload)
}

// GetCollection fetches a list endpoint and returns its records and reported total.
// An envelope with status:false is an upstream failure.
func (c *Client) GetCollection(ctx context.Context, path string, query url.Values) ([]models.Record, int, error) {
	v, err := c.Get(ctx, path, query)
	if err != nil {
		return nil, 0, err
	}
	if msg, failed := decoder.Failed(v); failed {
		return nil, 0, &HTTPError{Method: http.MethodGet, Path: path, StatusCode: http.StatusOK, Message: msg}
	}
	rows, total := decoder.Collection(v)
	records := make([]models.Record, len(rows))
	for i, row := range rows {
		records[i] = models.Record(row)
	}
	return records, total, nil
}

func messageOf(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
