package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Linker gives an OTP-verified email a stable identity. The secret handed to
// the provider is derived with an HMAC over the email's local part keyed by a
// server-held secret, so it is deterministic per email (a returning user maps
// to the same account) but never computable outside this process.
type Linker struct {
	provider Provider
	key      []byte
}

func NewLinker(p Provider, credentialSecret string) *Linker {
	return &Linker{provider: p, key: []byte(credentialSecret)}
}

// DeriveSecret computes the per-email credential.
func (l *Linker) DeriveSecret(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	mac := hmac.New(sha256.New, l.key)
	mac.Write([]byte(local))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Resolve signs in with the derived credential and, when the account is
// unknown (or the credential no longer matches), falls back to creating it.
// Any other provider failure propagates unretried. Exactly one of the two
// operations succeeds for the call to succeed.
func (l *Linker) Resolve(ctx context.Context, email string) (string, error) {
	secret := l.DeriveSecret(email)

	id, err := l.provider.SignIn(ctx, email, secret)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrUnknownAccount) && !errors.Is(err, ErrInvalidCredential) {
		return "", err
	}
	return l.provider.CreateAccount(ctx, email, secret)
}
