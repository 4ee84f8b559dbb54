package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ventana deslizante sobre un sorted set: score y miembro son el instante del reenvio en ms.
const redisResendWindowScript = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) >= max then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisResendLimiter comparte la cuota de reenvios entre replicas.
type redisResendLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
	now    func() time.Time
}

// NewRedisOTPRateLimiter aplica la misma ventana deslizante que NewOTPRateLimiter, guardada en Redis.
func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, max int) OTPRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisResendLimiter(client, window, max)
}

func newRedisResendLimiter(client redisEvaler, window time.Duration, max int) *redisResendLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisResendLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "pf:otp:resend:",
		now:    time.Now,
	}
}

// Allow deja pasar si Redis no responde; el codigo sigue limitado por su expiracion.
func (l *redisResendLimiter) Allow(email string) bool {
	if l == nil || l.client == nil {
		return true
	}
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	nowNanos := l.now().UnixNano()
	allowed, err := l.client.Eval(ctx, redisResendWindowScript, []string{l.prefix + email},
		nowNanos/int64(time.Millisecond),
		l.window.Milliseconds(),
		l.max,
		strconv.FormatInt(nowNanos, 10),
	).Int()
	if err != nil {
		return true
	}
	return allowed == 1
}
