package files

import "errors"

var (
	// ErrFileNotFound covers both truly missing files and files the caller
	// has no rights to, so responses never leak existence.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileTooLarge is raised before any bytes reach the object store.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrUploadIncomplete means the blob was stored but the catalog write
	// failed; the orphaned blob was cleaned up (or its cleanup logged) and
	// the whole upload can be retried.
	ErrUploadIncomplete = errors.New("upload incomplete, retry the upload")

	// ErrFileCleanupIncomplete means the catalog record is gone but the
	// backing blob survived the delete and its retry.
	ErrFileCleanupIncomplete = errors.New("file removed from catalog but blob cleanup failed")
)
