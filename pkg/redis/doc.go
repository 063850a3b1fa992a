// Package redis provides connection helpers for the session store.
//
// Sessions are ephemeral and TTL-bound, which maps directly onto Redis key
// expiry; this package only connects and health-checks, the session schema
// lives in modules/identity.
package redis
