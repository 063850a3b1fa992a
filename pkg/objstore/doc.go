// Package objstore implements the binary object store behind the file service.
//
// Objects are addressed by opaque storage keys, independent of any
// human-readable file name. The S3 implementation streams uploads through the
// AWS multipart upload manager so large bodies are never buffered in memory,
// and classifies provider errors into package sentinels the caller can branch
// on (ErrObjectNotFound, ErrObjectTooLarge, ErrServiceUnavailable, ...).
//
// The declared object size is validated against the configured cap before any
// bytes are transmitted.
package objstore
