package identity

import (
	"context"

	"github.com/niveshmitr/gateway/internal/domain"
	"github.com/niveshmitr/gateway/internal/repo"
	"github.com/niveshmitr/gateway/internal/security"
)

// MongoProvider backs the identity surface with the users collection.
// CreateAccount gets its conflict semantics from the unique email index.
type MongoProvider struct {
	store *repo.Store
}

func NewMongoProvider(s *repo.Store) *MongoProvider {
	return &MongoProvider{store: s}
}

func (p *MongoProvider) SignIn(ctx context.Context, email, secret string) (string, error) {
	u, err := p.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUnknownAccount
	}
	if u.PasswordHash == "" {
		// Account was created by another provider (Google). First OTP login
		// links the derived credential to it.
		hash, err := security.HashSecret(secret)
		if err != nil {
			return "", err
		}
		if err := p.store.SetUserCredential(ctx, u.ID, hash); err != nil {
			return "", err
		}
		return u.ID.Hex(), nil
	}
	if !security.CheckSecret(u.PasswordHash, secret) {
		return "", ErrInvalidCredential
	}
	return u.ID.Hex(), nil
}

func (p *MongoProvider) CreateAccount(ctx context.Context, email, secret string) (string, error) {
	hash, err := security.HashSecret(secret)
	if err != nil {
		return "", err
	}
	u := &domain.User{Email: email, PasswordHash: hash, Provider: "otp", Verified: true}
	if err := p.store.CreateUser(ctx, u); err != nil {
		if repo.IsDuplicate(err) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return u.ID.Hex(), nil
}
