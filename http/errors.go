package http

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError reports a 429 or 503 answer.
type RateLimitError struct {
	StatusCode int
	// RetryAfter is the server hint merged with the limiter's own backoff.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (status %d): retry after %v", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (status %d)", e.StatusCode)
}

// HTTPError reports any other non-2xx answer.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

var (
	// ErrCircuitOpen is returned while a host's circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrNoResponse indicates the retry loop ended without a response.
	ErrNoResponse = errors.New("no response received")
)
