package ytcollect

import (
	"ytcollect/collector"
	"ytcollect/config"
	ythttp "ytcollect/http"
	"ytcollect/internal/retry"
	"ytcollect/storage"
	"ytcollect/youtube"
)

// Error handling types exported for library users.
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, ytcollect.ErrQuotaExceeded) {
//		fmt.Println("daily quota spent")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var derr *ytcollect.DiscoveryError
//	if errors.As(err, &derr) {
//		fmt.Printf("category %s failed on page %d\n", derr.CategoryID, derr.Page)
//	}

// Type aliases for convenient error handling.
type (
	// DiscoveryError wraps a chart page failure for one category.
	DiscoveryError = collector.DiscoveryError
	// BatchError wraps a failed channel detail batch.
	BatchError = collector.BatchError
	// APIError wraps a failed Data API call.
	APIError = youtube.APIError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrMissingCredential indicates YOUTUBE_API_KEY is not set.
	ErrMissingCredential = config.ErrMissingCredential
	// ErrMissingAPIKey indicates a client was created without a key.
	ErrMissingAPIKey = youtube.ErrMissingAPIKey
	// ErrQuotaExceeded indicates the daily Data API quota is spent.
	ErrQuotaExceeded = youtube.ErrQuotaExceeded
	// ErrRateLimited indicates the Data API kept rejecting requests as too fast.
	ErrRateLimited = youtube.ErrRateLimited
	// ErrCircuitOpen indicates a host was skipped after repeated failures.
	ErrCircuitOpen = ythttp.ErrCircuitOpen

	// Storage errors
	// ErrNotFound indicates a snapshot was not found.
	ErrNotFound = storage.ErrNotFound
	// ErrAlreadyExists indicates a snapshot name is already taken.
	ErrAlreadyExists = storage.ErrAlreadyExists
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrStorageCorrupt indicates a snapshot could not be decoded.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsRetryable determines if an error should be retried.
// It returns false for context errors and for failures the Data API client
// marked permanent, such as an exhausted quota.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
