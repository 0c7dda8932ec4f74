package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     retries,
		BaseDelay:      time.Millisecond,
		RateLimitDelay: 0,
	}
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "baobab-ingest/1.0", r.UserAgent())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(), testPolicy(3), testLogger())
	resp, err := client.Get(context.Background(), server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(), testPolicy(3), testLogger())
	resp, err := client.Get(context.Background(), server.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetry404(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(), testPolicy(3), testLogger())
	_, err := client.Get(context.Background(), server.URL, nil)

	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(), testPolicy(3), testLogger())
	_, err := client.Get(context.Background(), server.URL, nil)

	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchNetworkErrorClassification(t *testing.T) {
	client := NewClient(DefaultConfig(), testPolicy(1), testLogger())
	_, err := client.Get(context.Background(), "http://127.0.0.1:1", nil)

	require.Error(t, err)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(DefaultConfig(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, RateLimitDelay: time.Second}, testLogger())
	_, err := client.Get(ctx, server.URL, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Acme","count":2}`))
	}))
	defer server.Close()

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	client := NewClient(DefaultConfig(), testPolicy(3), testLogger())
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &out))
	assert.Equal(t, "Acme", out.Name)
	assert.Equal(t, 2, out.Count)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&NetworkError{URL: "u", Err: errors.New("refused")}))
	assert.True(t, IsRetryable(&HTTPError{URL: "u", StatusCode: 500}))
	assert.False(t, IsRetryable(&HTTPError{URL: "u", StatusCode: 404}))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(nil))
}

type fakeLimiter struct {
	waits   atomic.Int32
	blocked atomic.Int64
}

func (l *fakeLimiter) Wait(context.Context, string) error {
	l.waits.Add(1)
	return nil
}

func (l *fakeLimiter) BlockFor(_ context.Context, _ string, d time.Duration) error {
	l.blocked.Store(int64(d))
	return nil
}

func TestFetchUsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	limiter := &fakeLimiter{}
	client := NewClient(DefaultConfig(), testPolicy(3), testLogger())
	client.SetLimiter(limiter)

	_, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), limiter.waits.Load())
}

func TestFetchRecordsRetryAfterBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	limiter := &fakeLimiter{}
	client := NewClient(DefaultConfig(), testPolicy(3), testLogger())
	client.SetLimiter(limiter)

	resp, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(7*time.Second), limiter.blocked.Load())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, parseRetryAfter("7"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))

	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(future)
	assert.Greater(t, got, 20*time.Second)
	assert.LessOrEqual(t, got, 30*time.Second)
}
