// Package files implements the file catalog and the access control gate in
// front of it.
//
// Every operation runs on behalf of an authenticated user. Reads require
// ownership or share-list membership; mutations require strict ownership.
// Authorization failures are indistinguishable from missing files on the
// outside, so a caller can never probe for the existence of someone else's
// data. Binary payloads live in an object store; the catalog holds metadata
// only, and upload/delete keep the two reconciled with compensating
// operations when one side fails.
package files
