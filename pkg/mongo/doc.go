// Package mongo provides connection helpers for the metadata catalog database.
//
// The catalog (file records), user documents and OTP challenges live in
// MongoDB; this package only knows how to connect, retry and health-check.
// Collection access lives with the feature modules that own the documents.
package mongo
