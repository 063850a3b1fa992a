package identity_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekeep/modules/identity"
	"github.com/dmitrymomot/storekeep/pkg/validator"
)

var codeRegex = regexp.MustCompile(`\b[0-9]{6}\b`)

func sentCode(t *testing.T, sender *mockSender) string {
	t.Helper()
	params, ok := sender.lastSent()
	require.True(t, ok, "no email was sent")
	code := codeRegex.FindString(params.BodyHTML)
	require.NotEmpty(t, code, "no code found in email body")
	return code
}

func TestService_RequestOTP(t *testing.T) {
	t.Parallel()

	t.Run("sign up creates user with placeholder avatar", func(t *testing.T) {
		t.Parallel()

		storage := newMockStorage()
		sender := &mockSender{}
		svc := identity.NewService(storage, newMockSessionStore(), sender)

		challengeID, err := svc.RequestOTP(context.Background(), "Alice@Example.COM", "Alice Smith")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, challengeID)

		user, err := storage.GetUserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Alice Smith", user.FullName)
		assert.Equal(t, identity.DefaultAvatarURL, user.AvatarURL)

		params, ok := sender.lastSent()
		require.True(t, ok)
		assert.Equal(t, "alice@example.com", params.SendTo)
	})

	t.Run("sign in for unknown email fails", func(t *testing.T) {
		t.Parallel()

		svc := identity.NewService(newMockStorage(), newMockSessionStore(), &mockSender{})

		_, err := svc.RequestOTP(context.Background(), "ghost@example.com", "")
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})

	t.Run("invalid email rejected before side effects", func(t *testing.T) {
		t.Parallel()

		sender := &mockSender{}
		svc := identity.NewService(newMockStorage(), newMockSessionStore(), sender)

		_, err := svc.RequestOTP(context.Background(), "not-an-email", "Alice")
		assert.True(t, validator.IsValidationError(err))
		_, sent := sender.lastSent()
		assert.False(t, sent)
	})

	t.Run("delivery failure surfaces as OTPDeliveryFailed", func(t *testing.T) {
		t.Parallel()

		sender := &mockSender{failWith: assert.AnError}
		svc := identity.NewService(newMockStorage(), newMockSessionStore(), sender)

		_, err := svc.RequestOTP(context.Background(), "alice@example.com", "Alice")
		assert.ErrorIs(t, err, identity.ErrOTPDeliveryFailed)
	})

	t.Run("reissue invalidates prior challenge", func(t *testing.T) {
		t.Parallel()

		storage := newMockStorage()
		sender := &mockSender{}
		svc := identity.NewService(storage, newMockSessionStore(), sender)
		ctx := context.Background()

		first, err := svc.RequestOTP(ctx, "alice@example.com", "Alice")
		require.NoError(t, err)
		firstCode := sentCode(t, sender)

		_, err = svc.RequestOTP(ctx, "alice@example.com", "")
		require.NoError(t, err)

		_, _, err = svc.VerifyOTP(ctx, first, firstCode)
		assert.ErrorIs(t, err, identity.ErrChallengeConsumed)
	})
}

func TestService_VerifyOTP(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T, opts ...identity.Option) (*identity.Service, *mockSender, uuid.UUID, string) {
		t.Helper()
		sender := &mockSender{}
		svc := identity.NewService(newMockStorage(), newMockSessionStore(), sender, opts...)
		challengeID, err := svc.RequestOTP(context.Background(), "alice@example.com", "Alice")
		require.NoError(t, err)
		return svc, sender, challengeID, sentCode(t, sender)
	}

	t.Run("correct code opens session once", func(t *testing.T) {
		t.Parallel()

		svc, _, challengeID, code := setup(t)
		ctx := context.Background()

		session, user, err := svc.VerifyOTP(ctx, challengeID, code)
		require.NoError(t, err)
		assert.NotEmpty(t, session.Secret)
		assert.Equal(t, user.ID, session.UserID)
		assert.Equal(t, "alice@example.com", user.Email)

		// Replay with the same (correct) code must fail.
		_, _, err = svc.VerifyOTP(ctx, challengeID, code)
		assert.ErrorIs(t, err, identity.ErrChallengeConsumed)
	})

	t.Run("wrong code burns attempts until exhausted", func(t *testing.T) {
		t.Parallel()

		svc, _, challengeID, code := setup(t, identity.WithOTPAttempts(2))
		ctx := context.Background()

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		_, _, err := svc.VerifyOTP(ctx, challengeID, wrong)
		assert.ErrorIs(t, err, identity.ErrInvalidCode)

		_, _, err = svc.VerifyOTP(ctx, challengeID, wrong)
		assert.ErrorIs(t, err, identity.ErrAttemptsExhausted)

		// Even the right code is dead now.
		_, _, err = svc.VerifyOTP(ctx, challengeID, code)
		assert.ErrorIs(t, err, identity.ErrAttemptsExhausted)
	})

	t.Run("expired challenge rejected", func(t *testing.T) {
		t.Parallel()

		svc, _, challengeID, code := setup(t, identity.WithOTPTTL(time.Millisecond))
		time.Sleep(10 * time.Millisecond)

		_, _, err := svc.VerifyOTP(context.Background(), challengeID, code)
		assert.ErrorIs(t, err, identity.ErrChallengeExpired)
	})

	t.Run("unknown challenge", func(t *testing.T) {
		t.Parallel()

		svc, _, _, _ := setup(t)

		_, _, err := svc.VerifyOTP(context.Background(), uuid.New(), "123456")
		assert.ErrorIs(t, err, identity.ErrChallengeNotFound)
	})

	t.Run("malformed code rejected without touching storage", func(t *testing.T) {
		t.Parallel()

		svc, _, challengeID, code := setup(t)
		ctx := context.Background()

		_, _, err := svc.VerifyOTP(ctx, challengeID, "12ab56")
		assert.True(t, validator.IsValidationError(err))

		// The malformed attempt must not have burned an attempt.
		_, _, err = svc.VerifyOTP(ctx, challengeID, code)
		assert.NoError(t, err)
	})
}

func TestService_Sessions(t *testing.T) {
	t.Parallel()

	newSignedIn := func(t *testing.T) (*identity.Service, *identity.Session, *identity.User) {
		t.Helper()
		sender := &mockSender{}
		svc := identity.NewService(newMockStorage(), newMockSessionStore(), sender)
		ctx := context.Background()

		challengeID, err := svc.RequestOTP(ctx, "alice@example.com", "Alice")
		require.NoError(t, err)
		session, user, err := svc.VerifyOTP(ctx, challengeID, sentCode(t, sender))
		require.NoError(t, err)
		return svc, session, user
	}

	t.Run("current user resolves live session", func(t *testing.T) {
		t.Parallel()

		svc, session, user := newSignedIn(t)

		got, err := svc.CurrentUser(context.Background(), session.Secret)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("unknown secret is not authenticated, not an error", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newSignedIn(t)

		got, err := svc.CurrentUser(context.Background(), "bogus-secret")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("sign out is idempotent", func(t *testing.T) {
		t.Parallel()

		svc, session, _ := newSignedIn(t)
		ctx := context.Background()

		require.NoError(t, svc.SignOut(ctx, session.Secret))
		require.NoError(t, svc.SignOut(ctx, session.Secret))

		got, err := svc.CurrentUser(ctx, session.Secret)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestService_UpdateAvatar(t *testing.T) {
	t.Parallel()

	newUser := func(t *testing.T, svc *identity.Service, storage *mockStorage) *identity.User {
		t.Helper()
		_, err := svc.RequestOTP(context.Background(), "alice@example.com", "Alice")
		require.NoError(t, err)
		user, err := storage.GetUserByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		return user
	}

	t.Run("allowed host", func(t *testing.T) {
		t.Parallel()

		storage := newMockStorage()
		svc := identity.NewService(storage, newMockSessionStore(), &mockSender{},
			identity.WithAvatarHosts([]string{"cdn.example.com"}))
		user := newUser(t, svc, storage)

		updated, err := svc.UpdateAvatar(context.Background(), user.ID, "https://cdn.example.com/me.png")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/me.png", updated.AvatarURL)
	})

	t.Run("host not on allow-list", func(t *testing.T) {
		t.Parallel()

		storage := newMockStorage()
		svc := identity.NewService(storage, newMockSessionStore(), &mockSender{},
			identity.WithAvatarHosts([]string{"cdn.example.com"}))
		user := newUser(t, svc, storage)

		_, err := svc.UpdateAvatar(context.Background(), user.ID, "https://evil.example.org/me.png")
		assert.ErrorIs(t, err, identity.ErrAvatarHostNotAllowed)
	})
}
