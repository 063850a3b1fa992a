// Package identity implements passwordless authentication with one-time
// passcodes delivered over email.
//
// A sign-in or sign-up request issues an OTPChallenge: a short numeric code is
// mailed to the address and only a bcrypt hash of it is stored. Verifying the
// code consumes the challenge (first successful verification wins, enforced by
// an atomic catalog update) and opens a Session. Sessions are opaque random
// secrets handed to the client in a signed cookie; the server keeps only a
// SHA-256 digest of the secret, so a store dump cannot be replayed.
package identity
