package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekeep/pkg/logger"
	"github.com/dmitrymomot/storekeep/pkg/mailer"
	"github.com/dmitrymomot/storekeep/pkg/sanitizer"
	"github.com/dmitrymomot/storekeep/pkg/validator"
)

// Config holds identity service settings.
type Config struct {
	OTPTTL      time.Duration `env:"IDENTITY_OTP_TTL" envDefault:"10m"`
	OTPAttempts int           `env:"IDENTITY_OTP_ATTEMPTS" envDefault:"3"`
	SessionTTL  time.Duration `env:"IDENTITY_SESSION_TTL" envDefault:"168h"`
	// AvatarHosts is the allow-list for avatar URL hosts.
	AvatarHosts []string `env:"IDENTITY_AVATAR_HOSTS" envDefault:"img.freepik.com"`
}

// Service implements OTP sign-in and session management.
type Service struct {
	storage     Storage
	sessions    SessionStore
	mail        mailer.Sender
	log         *slog.Logger
	otpTTL      time.Duration
	otpAttempts int
	sessionTTL  time.Duration
	avatarHosts []string
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithOTPTTL sets the challenge lifetime.
func WithOTPTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.otpTTL = ttl
		}
	}
}

// WithOTPAttempts sets how many verification attempts a challenge allows.
func WithOTPAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.otpAttempts = n
		}
	}
}

// WithSessionTTL sets the session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAvatarHosts sets the avatar URL host allow-list.
func WithAvatarHosts(hosts []string) Option {
	return func(s *Service) {
		s.avatarHosts = hosts
	}
}

// NewService creates an identity service with default settings.
func NewService(storage Storage, sessions SessionStore, mail mailer.Sender, opts ...Option) *Service {
	s := &Service{
		storage:     storage,
		sessions:    sessions,
		mail:        mail,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		otpTTL:      10 * time.Minute,
		otpAttempts: 3,
		sessionTTL:  7 * 24 * time.Hour,
		avatarHosts: []string{"img.freepik.com"},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewServiceFromConfig creates an identity service from environment config.
func NewServiceFromConfig(cfg Config, storage Storage, sessions SessionStore, mail mailer.Sender, opts ...Option) *Service {
	base := []Option{
		WithOTPTTL(cfg.OTPTTL),
		WithOTPAttempts(cfg.OTPAttempts),
		WithSessionTTL(cfg.SessionTTL),
		WithAvatarHosts(cfg.AvatarHosts),
	}
	return NewService(storage, sessions, mail, append(base, opts...)...)
}

// RequestOTP issues a fresh challenge and emails the code.
//
// A known email signs in; an unknown email registers only when fullName is
// supplied, otherwise the request fails with ErrUserNotFound. Issuing a new
// challenge voids all outstanding ones for the same email, so at most one
// code per address is live at a time.
func (s *Service) RequestOTP(ctx context.Context, email, fullName string) (uuid.UUID, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(
		validator.ValidEmail("email", email),
	); err != nil {
		return uuid.Nil, err
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return uuid.Nil, fmt.Errorf("failed to check user: %w", err)
		}
		if fullName == "" {
			return uuid.Nil, ErrUserNotFound
		}
		if err := validator.Apply(
			validator.RequiredString("full_name", fullName),
			validator.MaxLenString("full_name", fullName, 100),
		); err != nil {
			return uuid.Nil, err
		}

		user := &User{
			ID:        uuid.New(),
			FullName:  fullName,
			Email:     email,
			AvatarURL: DefaultAvatarURL,
			CreatedAt: time.Now(),
		}
		if err := s.storage.CreateUser(ctx, user); err != nil && !errors.Is(err, ErrEmailAlreadyExists) {
			return uuid.Nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	if err := s.storage.InvalidateChallenges(ctx, email); err != nil {
		return uuid.Nil, fmt.Errorf("failed to invalidate prior challenges: %w", err)
	}

	code, err := generateOTPCode()
	if err != nil {
		return uuid.Nil, err
	}
	codeHash, err := hashOTPCode(code)
	if err != nil {
		return uuid.Nil, err
	}

	challenge := &OTPChallenge{
		ID:                uuid.New(),
		Email:             email,
		FullName:          fullName,
		CodeHash:          codeHash,
		ExpiresAt:         time.Now().Add(s.otpTTL),
		AttemptsRemaining: s.otpAttempts,
		CreatedAt:         time.Now(),
	}
	if err := s.storage.CreateChallenge(ctx, challenge); err != nil {
		return uuid.Nil, err
	}

	if err := s.mail.SendEmail(ctx, mailer.SendEmailParams{
		SendTo:   email,
		Subject:  "Your verification code",
		BodyHTML: otpEmailBody(code, s.otpTTL),
		Tag:      "otp",
	}); err != nil {
		s.log.ErrorContext(ctx, "otp email delivery failed",
			slog.String("email", email),
			logger.Error(err),
			logger.Component("identity"),
		)
		return uuid.Nil, errors.Join(ErrOTPDeliveryFailed, err)
	}

	return challenge.ID, nil
}

// VerifyOTP checks the code against the challenge and opens a session.
//
// The challenge is consumed on the first successful verification; concurrent
// duplicates and replays fail with ErrChallengeConsumed. A wrong code burns
// one attempt; with no attempts left the challenge is permanently dead.
func (s *Service) VerifyOTP(ctx context.Context, challengeID uuid.UUID, code string) (*Session, *User, error) {
	if err := validator.Apply(
		validator.LenString("code", code, otpCodeLength),
		validator.NumericString("code", code),
	); err != nil {
		return nil, nil, err
	}

	challenge, err := s.storage.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case challenge.Consumed:
		return nil, nil, ErrChallengeConsumed
	case challenge.AttemptsRemaining <= 0:
		return nil, nil, ErrAttemptsExhausted
	case challenge.Expired(time.Now()):
		return nil, nil, ErrChallengeExpired
	}

	if !matchOTPCode(challenge.CodeHash, code) {
		remaining, err := s.storage.DecrementAttempts(ctx, challengeID)
		if err != nil {
			return nil, nil, err
		}
		if remaining <= 0 {
			return nil, nil, ErrAttemptsExhausted
		}
		return nil, nil, ErrInvalidCode
	}

	// First successful verification wins; losers of the race land here with
	// ErrChallengeConsumed.
	if err := s.storage.ConsumeChallenge(ctx, challengeID); err != nil {
		return nil, nil, err
	}

	user, err := s.storage.GetUserByEmail(ctx, challenge.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve user for challenge: %w", err)
	}

	secret, err := generateSessionSecret()
	if err != nil {
		return nil, nil, err
	}

	session := Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Secret:    secret,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, digestSecret(secret), session, s.sessionTTL); err != nil {
		return nil, nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.log.InfoContext(ctx, "user signed in",
		logger.UserID(user.ID.String()),
		logger.Event("otp_verified"),
		logger.Component("identity"),
	)

	return &session, user, nil
}

// CurrentUser resolves a session secret to its user. An absent or expired
// session yields (nil, nil): not authenticated is not an error.
func (s *Service) CurrentUser(ctx context.Context, secret string) (*User, error) {
	if secret == "" {
		return nil, nil
	}

	session, err := s.sessions.Get(ctx, digestSecret(secret))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	user, err := s.storage.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Session outlived its account; drop it.
			_ = s.sessions.Delete(ctx, digestSecret(secret))
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SignOut destroys the session. Idempotent if the session is already gone.
func (s *Service) SignOut(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	return s.sessions.Delete(ctx, digestSecret(secret))
}

// UpdateAvatar sets the user's avatar URL after checking the host allow-list.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*User, error) {
	if err := validator.Apply(
		validator.ValidURL("avatar_url", avatarURL),
	); err != nil {
		return nil, err
	}

	u, err := url.Parse(avatarURL)
	if err != nil || !slices.Contains(s.avatarHosts, u.Hostname()) {
		return nil, ErrAvatarHostNotAllowed
	}

	if err := s.storage.UpdateUserAvatar(ctx, userID, avatarURL); err != nil {
		return nil, err
	}
	return s.storage.GetUserByID(ctx, userID)
}

func otpEmailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<p>Your verification code is:</p><h2>%s</h2><p>The code expires in %d minutes. If you did not request it, ignore this email.</p>`,
		code, int(ttl.Minutes()),
	)
}
