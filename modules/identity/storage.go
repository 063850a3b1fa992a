package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage defines the persistence operations required by the identity service.
type Storage interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error

	CreateChallenge(ctx context.Context, challenge *OTPChallenge) error
	GetChallenge(ctx context.Context, id uuid.UUID) (*OTPChallenge, error)
	// ConsumeChallenge atomically marks the challenge consumed. Exactly one
	// concurrent caller succeeds; the rest get ErrChallengeConsumed.
	ConsumeChallenge(ctx context.Context, id uuid.UUID) error
	// DecrementAttempts burns one verification attempt and returns the count
	// remaining after the decrement.
	DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// InvalidateChallenges voids all outstanding challenges for the email.
	InvalidateChallenges(ctx context.Context, email string) error
}

// SessionStore holds active sessions keyed by secret digest, with TTL expiry.
type SessionStore interface {
	Save(ctx context.Context, digest string, session Session, ttl time.Duration) error
	// Get returns ErrSessionNotFound for an absent or expired digest.
	Get(ctx context.Context, digest string) (*Session, error)
	// Delete is idempotent.
	Delete(ctx context.Context, digest string) error
}
