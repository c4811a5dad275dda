package repo

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type RefreshToken struct {
	ID        interface{}        `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	TokenHash string             `bson:"token_hash"` // sha256(base64url(refresh))
	ExpiresAt time.Time          `bson:"expires_at"`
	Revoked   bool               `bson:"revoked"`
	CreatedAt time.Time          `bson:"created_at"`
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *Store) SaveRefresh(ctx context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) error {
	rt := RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(plain),
		ExpiresAt: time.Now().Add(ttl).UTC(),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.DB.Collection(collRefresh).InsertOne(ctx, rt)
	return err
}

func (s *Store) FindValidRefresh(ctx context.Context, plain string) (*RefreshToken, error) {
	var rt RefreshToken
	err := s.DB.Collection(collRefresh).
		FindOne(ctx, bson.M{
			"token_hash": hashToken(plain),
			"revoked":    false,
			"expires_at": bson.M{"$gt": time.Now().UTC()},
		}).Decode(&rt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

func (s *Store) RevokeRefresh(ctx context.Context, plain string) error {
	_, err := s.DB.Collection(collRefresh).
		UpdateOne(ctx, bson.M{"token_hash": hashToken(plain)}, bson.M{"$set": bson.M{"revoked": true}})
	return err
}
