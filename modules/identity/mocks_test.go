package identity_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storekeep/modules/identity"
	"github.com/dmitrymomot/storekeep/pkg/mailer"
)

type mockStorage struct {
	mu         sync.Mutex
	users      map[string]*identity.User // keyed by email
	challenges map[uuid.UUID]*identity.OTPChallenge
	failWith   error
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		users:      make(map[string]*identity.User),
		challenges: make(map[uuid.UUID]*identity.OTPChallenge),
	}
}

func (m *mockStorage) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	user, ok := m.users[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (m *mockStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			u := *user
			return &u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *mockStorage) CreateUser(ctx context.Context, user *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return identity.ErrEmailAlreadyExists
	}
	u := *user
	m.users[user.Email] = &u
	return nil
}

func (m *mockStorage) UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			user.AvatarURL = avatarURL
			return nil
		}
	}
	return identity.ErrUserNotFound
}

func (m *mockStorage) CreateChallenge(ctx context.Context, challenge *identity.OTPChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *challenge
	m.challenges[challenge.ID] = &c
	return nil
}

func (m *mockStorage) GetChallenge(ctx context.Context, id uuid.UUID) (*identity.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	challenge, ok := m.challenges[id]
	if !ok {
		return nil, identity.ErrChallengeNotFound
	}
	c := *challenge
	return &c, nil
}

func (m *mockStorage) ConsumeChallenge(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	challenge, ok := m.challenges[id]
	if !ok || challenge.Consumed || challenge.AttemptsRemaining <= 0 {
		return identity.ErrChallengeConsumed
	}
	challenge.Consumed = true
	return nil
}

func (m *mockStorage) DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	challenge, ok := m.challenges[id]
	if !ok || challenge.Consumed || challenge.AttemptsRemaining <= 0 {
		return 0, identity.ErrChallengeConsumed
	}
	challenge.AttemptsRemaining--
	return challenge.AttemptsRemaining, nil
}

func (m *mockStorage) InvalidateChallenges(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, challenge := range m.challenges {
		if challenge.Email == email && !challenge.Consumed {
			challenge.Consumed = true
		}
	}
	return nil
}

type storedSession struct {
	session   identity.Session
	expiresAt time.Time
}

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]storedSession
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]storedSession)}
}

func (m *mockSessionStore) Save(ctx context.Context, digest string, session identity.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[digest] = storedSession{session: session, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, digest string) (*identity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[digest]
	if !ok || time.Now().After(stored.expiresAt) {
		return nil, identity.ErrSessionNotFound
	}
	s := stored.session
	return &s, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, digest)
	return nil
}

type mockSender struct {
	mu       sync.Mutex
	sent     []mailer.SendEmailParams
	failWith error
}

func (m *mockSender) SendEmail(ctx context.Context, params mailer.SendEmailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.sent = append(m.sent, params)
	return nil
}

func (m *mockSender) lastSent() (mailer.SendEmailParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mailer.SendEmailParams{}, false
	}
	return m.sent[len(m.sent)-1], true
}
