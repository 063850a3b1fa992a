package objstore

import "errors"

var (
	// Validation errors, raised before any bytes are transmitted.
	ErrObjectTooLarge = errors.New("object size exceeds maximum allowed size")
	ErrInvalidKey     = errors.New("invalid storage key")
	ErrInvalidSize    = errors.New("invalid object size")
	ErrNilBody        = errors.New("object body is nil")

	// Object state errors.
	ErrObjectNotFound = errors.New("object not found")
	ErrBucketNotFound = errors.New("bucket not found")

	// Provider errors classified for retry decisions.
	ErrAccessDenied       = errors.New("access denied")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")

	// Context and cancellation errors.
	ErrOperationTimeout  = errors.New("operation timed out")
	ErrOperationCanceled = errors.New("operation canceled")

	// Configuration errors.
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")
)
