package youtube

import (
	"errors"
	"fmt"
)

// Sentinel errors for Data API calls.
var (
	ErrMissingAPIKey = errors.New("youtube: api key required")
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
	ErrRateLimited   = errors.New("youtube: rate limited")
)

// APIError wraps a failed Data API call with the operation that failed.
type APIError struct {
	// Op is the API method, e.g. "videos.list".
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
