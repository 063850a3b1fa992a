// Package cookie manages HTTP cookies with HMAC signing for tamper detection.
//
// The manager holds one or more secrets; the first is used for signing and all
// are tried during verification, which allows key rotation without logging
// everyone out.
//
//	m, err := cookie.New([]string{secret})
//	_ = m.SetSigned(w, "session", token)
//	token, err := m.GetSigned(r, "session")
//
// The session cookie carries the opaque session secret, so defaults are strict:
// HttpOnly, SameSite=Strict, Path=/.
package cookie
