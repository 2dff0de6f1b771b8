package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"llmexec/internal/shared"
)

// Client wraps http.Client with logging, default headers and status
// classification. It performs exactly one round trip per call; retrying is
// left to the caller.
type Client struct {
	hc           *stdhttp.Client
	log          *slog.Logger
	headers      map[string]string
	urlRedactor  func(*url.URL) string
	maxErrorBody int64
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) {
		if t > 0 {
			c.hc.Timeout = t
		}
	}
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			if c.headers == nil {
				c.headers = make(map[string]string)
			}
			c.headers[k] = v
		}
	}
}

// WithURLRedactor sets URL redactor for logs.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) { c.urlRedactor = f }
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// WithMaxErrorBody limits how much of an error response body is kept in StatusError.
func WithMaxErrorBody(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxErrorBody = n
		}
	}
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 20
	tr.MaxIdleConnsPerHost = 10
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   60 * time.Second,
			Transport: tr,
		},
		log:          slog.Default(),
		maxErrorBody: 4 << 10,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.hc.Timeout }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(code int) shared.Kind {
	switch {
	case code == stdhttp.StatusRequestTimeout, code == stdhttp.StatusGatewayTimeout:
		return shared.KindTimeout
	case code == stdhttp.StatusTooManyRequests:
		return shared.KindRateLimited
	case code == stdhttp.StatusMisdirectedRequest, code == stdhttp.StatusTooEarly, code >= 500:
		return shared.KindUnavailable
	case code == stdhttp.StatusUnauthorized, code == stdhttp.StatusForbidden:
		return shared.KindUnauthorized
	case code >= 400:
		return shared.KindInvalidRequest
	default:
		return shared.KindUnknown
	}
}

// retryAfter parses Retry-After header value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}

// redactURL returns redacted URL string.
func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Redacted()
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}

// Do sends one HTTP request. Transport errors are returned as produced by
// net/http, so network classification still sees *url.Error and friends.
// A non-2xx response is consumed and reported as *StatusError marked with
// KindForStatus.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	r := req.Clone(ctx)
	for k, v := range c.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	u := c.redactURL(r.URL)

	st := time.Now()
	resp, err := c.hc.Do(r)
	dur := time.Since(st)
	if err != nil {
		c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Duration("dur", dur), slog.Any("error", err))
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.log.Debug("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur))
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, c.maxErrorBody))
	drainAndClose(resp.Body)
	se := &StatusError{
		Method:     r.Method,
		URL:        u,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
	}
	c.log.Warn("http request status", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur), slog.Duration("retry_after", se.RetryAfter))
	return nil, shared.MarkKind(se, KindForStatus(resp.StatusCode))
}

// PostJSON marshals in, posts it to rawURL with the given headers and decodes
// the 2xx response body into out. A body that is not valid JSON is marked
// shared.KindMalformedResponse.
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return shared.MarkKind(fmt.Errorf("encode request: %w", err), shared.KindInternal)
	}
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return shared.MarkKind(err, shared.KindInvalidRequest)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("decode response: %w", err)
		}
		return shared.MarkKind(fmt.Errorf("decode response: %w", err), shared.KindMalformedResponse)
	}
	return nil
}
