package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// AllowOTPSend enforces a per-minute cap on OTP dispatches for a key
// (email or client IP). Fail-open: a Redis error never blocks the user.
func (r *Redis) AllowOTPSend(ctx context.Context, key string, perMin int) bool {
	if perMin <= 0 {
		return true
	}
	k := "rl:otp:" + key
	cnt, err := r.C.Incr(ctx, k).Result()
	if err != nil {
		return true
	}
	if cnt == 1 {
		r.C.Expire(ctx, k, time.Minute)
	}
	return cnt <= int64(perMin)
}
