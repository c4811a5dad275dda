package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/niveshmitr/gateway/internal/domain"
)

// IsDuplicate reports whether err is a unique-index violation.
func IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	_, err := s.DB.Collection(collUsers).InsertOne(ctx, u)
	return err
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.DB.Collection(collUsers).FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var u domain.User
	err := s.DB.Collection(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserCredential attaches a password hash to an existing user.
func (s *Store) SetUserCredential(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.DB.Collection(collUsers).
		UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password_hash": hash}})
	return err
}

// UpsertGoogleUser resolves a Google identity to a local user, creating the
// user on first login. Keyed by email so an address verified earlier over OTP
// maps to the same account.
func (s *Store) UpsertGoogleUser(ctx context.Context, email, sub string) (*domain.User, error) {
	now := time.Now().UTC()
	res := s.DB.Collection(collUsers).FindOneAndUpdate(
		ctx,
		bson.M{"email": email},
		bson.M{
			"$set":         bson.M{"external_id": sub, "verified": true},
			"$setOnInsert": bson.M{"email": email, "provider": "google", "created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var u domain.User
	if err := res.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
