package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection      = "users"
	challengesCollection = "otp_challenges"
)

// MongoStorage persists users and OTP challenges in MongoDB.
type MongoStorage struct {
	users      *mongo.Collection
	challenges *mongo.Collection
}

// NewMongoStorage creates storage backed by the given database.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		users:      db.Collection(usersCollection),
		challenges: db.Collection(challengesCollection),
	}
}

// EnsureIndexes creates the unique email index and the challenge expiry TTL
// index. Call once at startup.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}

	_, err = s.challenges.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create challenge indexes: %w", err)
	}
	return nil
}

// IDs are stored as strings so documents stay readable in the shell and
// independent of driver-specific UUID codecs.
type userDoc struct {
	ID        string    `bson:"_id"`
	FullName  string    `bson:"full_name"`
	Email     string    `bson:"email"`
	AvatarURL string    `bson:"avatar_url"`
	CreatedAt time.Time `bson:"created_at"`
}

type challengeDoc struct {
	ID                string    `bson:"_id"`
	Email             string    `bson:"email"`
	FullName          string    `bson:"full_name,omitempty"`
	CodeHash          []byte    `bson:"code_hash"`
	ExpiresAt         time.Time `bson:"expires_at"`
	AttemptsRemaining int       `bson:"attempts_remaining"`
	Consumed          bool      `bson:"consumed"`
	CreatedAt         time.Time `bson:"created_at"`
}

func (d userDoc) toUser() (*User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	return &User{
		ID:        id,
		FullName:  d.FullName,
		Email:     d.Email,
		AvatarURL: d.AvatarURL,
		CreatedAt: d.CreatedAt,
	}, nil
}

func (d challengeDoc) toChallenge() (*OTPChallenge, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge id %q: %w", d.ID, err)
	}
	return &OTPChallenge{
		ID:                id,
		Email:             d.Email,
		FullName:          d.FullName,
		CodeHash:          d.CodeHash,
		ExpiresAt:         d.ExpiresAt,
		AttemptsRemaining: d.AttemptsRemaining,
		Consumed:          d.Consumed,
		CreatedAt:         d.CreatedAt,
	}, nil
}

func (s *MongoStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return doc.toUser()
}

func (s *MongoStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return doc.toUser()
}

func (s *MongoStorage) CreateUser(ctx context.Context, user *User) error {
	doc := userDoc{
		ID:        user.ID.String(),
		FullName:  user.FullName,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *MongoStorage) UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"avatar_url": avatarURL}},
	)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoStorage) CreateChallenge(ctx context.Context, challenge *OTPChallenge) error {
	doc := challengeDoc{
		ID:                challenge.ID.String(),
		Email:             challenge.Email,
		FullName:          challenge.FullName,
		CodeHash:          challenge.CodeHash,
		ExpiresAt:         challenge.ExpiresAt,
		AttemptsRemaining: challenge.AttemptsRemaining,
		Consumed:          challenge.Consumed,
		CreatedAt:         challenge.CreatedAt,
	}
	if _, err := s.challenges.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (s *MongoStorage) GetChallenge(ctx context.Context, id uuid.UUID) (*OTPChallenge, error) {
	var doc challengeDoc
	if err := s.challenges.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return doc.toChallenge()
}

// ConsumeChallenge flips consumed in a single conditional update so that
// concurrent verifications of the same challenge cannot both succeed.
func (s *MongoStorage) ConsumeChallenge(ctx context.Context, id uuid.UUID) error {
	err := s.challenges.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                id.String(),
			"consumed":           false,
			"attempts_remaining": bson.M{"$gt": 0},
		},
		bson.M{"$set": bson.M{"consumed": true}},
	).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrChallengeConsumed
		}
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	return nil
}

func (s *MongoStorage) DecrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var doc challengeDoc
	err := s.challenges.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "consumed": false, "attempts_remaining": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"attempts_remaining": -1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrChallengeConsumed
		}
		return 0, fmt.Errorf("failed to decrement attempts: %w", err)
	}
	return doc.AttemptsRemaining, nil
}

func (s *MongoStorage) InvalidateChallenges(ctx context.Context, email string) error {
	_, err := s.challenges.UpdateMany(ctx,
		bson.M{"email": email, "consumed": false},
		bson.M{"$set": bson.M{"consumed": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate challenges: %w", err)
	}
	return nil
}
