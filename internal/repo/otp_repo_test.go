package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/niveshmitr/gateway/internal/repo"
)

func newOTPStore(t *testing.T, ttl time.Duration, maxAttempts int) (*repo.OTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rds := repo.NewRedis(mr.Addr())
	t.Cleanup(func() { _ = rds.Close() })
	return repo.NewOTPStore(rds, ttl, maxAttempts), mr
}

func TestOTPStore_VerifyMatch(t *testing.T) {
	s, _ := newOTPStore(t, 5*time.Minute, 5)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a@b.com", "123456"))
	require.NoError(t, s.Verify(ctx, "a@b.com", "123456"))

	// consumed: a second verify must fail
	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "123456"), repo.ErrOTPExpired)
}

func TestOTPStore_Mismatch_PreservesPending(t *testing.T) {
	s, _ := newOTPStore(t, 5*time.Minute, 5)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a@b.com", "123456"))
	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "654321"), repo.ErrOTPMismatch)

	// the right code still works after a wrong attempt
	require.NoError(t, s.Verify(ctx, "a@b.com", "123456"))
}

func TestOTPStore_Lockout(t *testing.T) {
	s, _ := newOTPStore(t, 5*time.Minute, 3)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a@b.com", "123456"))
	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "000000"), repo.ErrOTPMismatch)
	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "000000"), repo.ErrOTPMismatch)
	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "000000"), repo.ErrOTPLocked)

	// record dropped: even the right code is gone now
	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "123456"), repo.ErrOTPExpired)
}

func TestOTPStore_Expiry(t *testing.T) {
	s, mr := newOTPStore(t, time.Minute, 5)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a@b.com", "123456"))
	mr.FastForward(2 * time.Minute)
	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "123456"), repo.ErrOTPExpired)
}

func TestOTPStore_ResendOverwrites(t *testing.T) {
	s, _ := newOTPStore(t, time.Minute, 5)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a@b.com", "111111"))
	require.NoError(t, s.Put(ctx, "a@b.com", "222222"))

	require.ErrorIs(t, s.Verify(ctx, "a@b.com", "111111"), repo.ErrOTPMismatch)
	require.NoError(t, s.Verify(ctx, "a@b.com", "222222"))
}
