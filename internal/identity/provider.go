// Package identity resolves a verified email address to a stable account id.
//
// The provider deliberately mirrors the shape of a hosted identity service:
// sign-in and account creation are distinct operations with distinct error
// classes, and there is no upsert primitive. The Linker owns the
// sign-in-or-create fallback on top of it.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrUnknownAccount means no account exists for the email.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrInvalidCredential means the account exists but the secret does not match.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrEmailTaken means CreateAccount lost a race to another creation.
	ErrEmailTaken = errors.New("email already registered")
)

// Provider is the minimal identity-service surface the Linker needs.
type Provider interface {
	// SignIn authenticates {email, secret} and returns the account id.
	SignIn(ctx context.Context, email, secret string) (string, error)
	// CreateAccount registers {email, secret} and returns the new account id.
	CreateAccount(ctx context.Context, email, secret string) (string, error)
}
