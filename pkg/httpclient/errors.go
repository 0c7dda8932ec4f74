package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// NetworkError wraps a connect, DNS, or timeout failure. Always
// retryable.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response. Retryable unless the status is 404,
// which means the resource is gone and retrying cannot help.
// RetryAfter carries the server's backoff hint on a 429, zero otherwise.
type HTTPError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d fetching %s", e.StatusCode, e.URL)
}

func (e *HTTPError) Retryable() bool {
	return e.StatusCode != http.StatusNotFound
}

// IsRetryable reports whether the fetch loop should attempt the request
// again. Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}

	var netErr *NetworkError
	return errors.As(err, &netErr)
}
