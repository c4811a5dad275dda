package repo

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Pending-verification records live in Redis under otp:{email} as a hash
// {code, attempts}. Redis expiry is the TTL; a re-send overwrites the record
// (last write wins, matching the send flow's semantics).

var (
	ErrOTPExpired  = errors.New("otp expired or not requested")
	ErrOTPMismatch = errors.New("otp mismatch")
	ErrOTPLocked   = errors.New("otp attempts exhausted")
)

type OTPStore struct {
	c           *redis.Client
	ttl         time.Duration
	maxAttempts int
}

func NewOTPStore(r *Redis, ttl time.Duration, maxAttempts int) *OTPStore {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OTPStore{c: r.C, ttl: ttl, maxAttempts: maxAttempts}
}

func otpKey(email string) string { return "otp:" + email }

func (s *OTPStore) Put(ctx context.Context, email, code string) error {
	key := otpKey(email)
	pipe := s.c.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "code", code, "attempts", 0)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Verify compares entered against the stored code. On match the record is
// deleted. On mismatch the attempt counter is bumped and, once exhausted,
// the record is dropped so the caller must request a fresh code.
func (s *OTPStore) Verify(ctx context.Context, email, entered string) error {
	key := otpKey(email)
	vals, err := s.c.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	code, ok := vals["code"]
	if !ok {
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(entered)) == 1 {
		return s.c.Del(ctx, key).Err()
	}
	attempts, err := s.c.HIncrBy(ctx, key, "attempts", 1).Result()
	if err != nil {
		return err
	}
	if attempts >= int64(s.maxAttempts) {
		_ = s.c.Del(ctx, key).Err()
		return ErrOTPLocked
	}
	return ErrOTPMismatch
}
