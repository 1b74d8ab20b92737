// Package httpx runs HTTP requests through the failover executor.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/alternatefutures/package-cloud-sdk/failover"
)

// DefaultMaxBodyBytes caps the response body buffered per attempt.
const DefaultMaxBodyBytes int64 = 32 << 20

// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
var ErrBodyTooLarge = errors.New("httpx: response body too large")

// RequestFunc builds the request for one attempt against endpoint.
type RequestFunc func(ctx context.Context, endpoint string) (*http.Request, error)

// Response is a fully-read HTTP response. The body is read inside the attempt so
// the endpoint timeout covers the whole transfer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type options struct {
	maxBodyBytes int64
}

// Option configures Do.
type Option func(*options)

// WithMaxBodyBytes caps the buffered response body. Non-positive values restore the default.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		o.maxBodyBytes = n
	}
}

// Do sends the request built by build to each endpoint of cfg in turn until one
// answers with a 2xx status. Transport errors and other statuses are attempt
// failures reported as *StatusError.
func Do(ctx context.Context, exec *failover.Executor, client *http.Client, cfg failover.Config, build RequestFunc, opts ...Option) (failover.Result[*Response], error) {
	if build == nil {
		return failover.Result[*Response]{}, &failover.ConfigurationError{Err: errors.New("httpx: request builder is required")}
	}
	return failover.Execute(ctx, exec, cfg, UnitOfWork(client, build, opts...))
}

// UnitOfWork returns the single-attempt function used by Do, for callers that
// need to inspect the response inside the attempt.
func UnitOfWork(client *http.Client, build RequestFunc, opts ...Option) failover.UnitOfWork[*Response] {
	o := options{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.maxBodyBytes <= 0 {
		o.maxBodyBytes = DefaultMaxBodyBytes
	}
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context, endpoint string) (*Response, error) {
		if build == nil {
			return nil, errors.New("httpx: request builder is required")
		}
		req, err := build(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("httpx: build request for %s: %w", endpoint, err)
		}
		req = req.WithContext(ctx)

		resp, err := client.Do(req)
		if err != nil {
			return nil, &StatusError{Method: req.Method, URL: req.URL.String(), Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Bounded drain so the connection can be reused.
			_, _ = io.CopyN(io.Discard, resp.Body, 4096)
			return nil, &StatusError{
				Code:   resp.StatusCode,
				Method: req.Method,
				URL:    req.URL.String(),
				Header: resp.Header,
			}
		}

		body, err := readLimited(resp.Body, o.maxBodyBytes)
		if err != nil {
			return nil, err
		}
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	// One byte past the limit distinguishes "exactly limit" from "too large".
	readMax := limit
	if readMax < math.MaxInt64 {
		readMax++
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, readMax))
	if err != nil {
		return nil, fmt.Errorf("httpx: read body: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, limit)
	}
	return buf.Bytes(), nil
}

// StatusError describes a failed HTTP attempt. Code is 0 for transport errors.
type StatusError struct {
	Code   int
	Method string
	URL    string
	Header http.Header
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: http status %d", e.Method, e.URL, e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatusCode returns the response status, or 0 for transport errors.
func (e *StatusError) HTTPStatusCode() int { return e.Code }

// RetryAfter parses the Retry-After header as seconds or an HTTP date.
func (e *StatusError) RetryAfter() (time.Duration, bool) {
	if e.Header == nil {
		return 0, false
	}
	s := e.Header.Get("Retry-After")
	if s == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(s); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// Get is a RequestFunc factory for GET requests to endpoint+path.
func Get(path string, header http.Header) RequestFunc {
	return func(ctx context.Context, endpoint string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(endpoint, path), nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	}
}

// Post is a RequestFunc factory for POST requests with a replayable body.
func Post(path, contentType string, body []byte, header http.Header) RequestFunc {
	return func(ctx context.Context, endpoint string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(endpoint, path), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	}
}

func joinURL(endpoint, path string) string {
	if path == "" {
		return endpoint
	}
	for len(endpoint) > 0 && endpoint[len(endpoint)-1] == '/' {
		endpoint = endpoint[:len(endpoint)-1]
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return endpoint + path
}
