package identity

import "errors"

// User errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Challenge errors
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeConsumed = errors.New("challenge already consumed")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")
	ErrOTPDeliveryFailed = errors.New("failed to deliver verification code")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Profile errors
var (
	ErrAvatarHostNotAllowed = errors.New("avatar host not allowed")
)
