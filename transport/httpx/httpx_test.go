package httpx

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alternatefutures/package-cloud-sdk/failover"
)

func TestDo_FailsOverOnStatus(t *testing.T) {
	var primaryHits int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&primaryHits, 1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/abc", r.URL.Path)
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "hello")
	}))
	defer backup.Close()

	var failures []error
	cfg := failover.NewConfig(
		[]failover.Endpoint{{URL: primary.URL, Priority: 1}, {URL: backup.URL, Priority: 2}},
		failover.MaxRetries(2),
		failover.RetryDelay(0),
		failover.OnFailover(func(_ string, err error) { failures = append(failures, err) }),
	)

	res, err := Do(context.Background(), failover.NewExecutor(), nil, cfg, Get("/ipfs/abc", http.Header{"X-Test": {"yes"}}))
	require.NoError(t, err)
	assert.Equal(t, backup.URL, res.Endpoint)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "hello", string(res.Data.Body))
	assert.Equal(t, "text/plain", res.Data.Header.Get("Content-Type"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&primaryHits))

	require.Len(t, failures, 2)
	var se *StatusError
	require.True(t, errors.As(failures[0], &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.HTTPStatusCode())
	ra, ok := se.RetryAfter()
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, ra)
}

func TestDo_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := failover.Config{Endpoints: []failover.Endpoint{{URL: srv.URL}}}
	_, err := Do(context.Background(), failover.NewExecutor(), srv.Client(), cfg, Get("", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, failover.ErrAllEndpointsFailed))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Error(), "http status 404")
}

func TestDo_EndpointTimeoutCoversBody(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "partial")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer fast.Close()

	cfg := failover.Config{Endpoints: []failover.Endpoint{
		{URL: slow.URL, Priority: 1, Timeout: 50 * time.Millisecond},
		{URL: fast.URL, Priority: 2},
	}}
	res, err := Do(context.Background(), failover.NewExecutor(), nil, cfg, Get("", nil))
	require.NoError(t, err)
	assert.Equal(t, fast.URL, res.Endpoint)
	assert.Equal(t, "ok", string(res.Data.Body))
}

func TestDo_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	cfg := failover.Config{Endpoints: []failover.Endpoint{{URL: srv.URL}}}
	_, err := Do(context.Background(), failover.NewExecutor(), nil, cfg, Get("", nil), WithMaxBodyBytes(16))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBodyTooLarge))

	res, err := Do(context.Background(), failover.NewExecutor(), nil, cfg, Get("", nil), WithMaxBodyBytes(64))
	require.NoError(t, err)
	assert.Len(t, res.Data.Body, 64)
}

func TestReadLimited(t *testing.T) {
	body, err := readLimited(strings.NewReader("hello"), math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	body, err = readLimited(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = readLimited(strings.NewReader("hello"), 4)
	assert.True(t, errors.Is(err, ErrBodyTooLarge))
}

func TestDo_PostReplaysBody(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"q":1}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "done")
	}))
	defer srv.Close()

	cfg := failover.Config{Endpoints: []failover.Endpoint{{URL: srv.URL}}, MaxRetries: 2}
	res, err := Do(context.Background(), failover.NewExecutor(), nil, cfg, Post("/graphql", "application/json", []byte(`{"q":1}`), nil))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "done", string(res.Data.Body))
}

func TestDo_NilBuilder(t *testing.T) {
	cfg := failover.Config{Endpoints: []failover.Endpoint{{URL: "http://example.invalid"}}}
	_, err := Do(context.Background(), nil, nil, cfg, nil)
	assert.True(t, errors.Is(err, failover.ErrInvalidConfig))
}

func TestStatusError_RetryAfter(t *testing.T) {
	cases := []struct {
		name   string
		header string
		ok     bool
	}{
		{name: "missing"},
		{name: "seconds", header: "5", ok: true},
		{name: "date", header: time.Now().Add(time.Hour).UTC().Format(http.TimeFormat), ok: true},
		{name: "garbage", header: "soon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.header != "" {
				h.Set("Retry-After", tc.header)
			}
			_, ok := (&StatusError{Header: h}).RetryAfter()
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://a/ipfs/x", joinURL("https://a/", "ipfs/x"))
	assert.Equal(t, "https://a/ipfs/x", joinURL("https://a", "/ipfs/x"))
	assert.Equal(t, "https://a", joinURL("https://a", ""))
}
