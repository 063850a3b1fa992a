// Package ratelimit provides token bucket rate limiting with in-memory
// storage and HTTP middleware.
//
// The primary consumer is the OTP request endpoint, where the limiter is
// keyed by client IP and requested email to slow down enumeration and mail
// flooding. Buckets refill on a fixed interval and stale entries are evicted
// by a background sweep.
package ratelimit
