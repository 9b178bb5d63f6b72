package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR + EXPIRE atomico: la ventana arranca con la primera solicitud.
const redisOTPAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisOTPRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisOTPRateLimiter comparte el limite de solicitudes de OTP por numero
// movil entre todas las instancias del servicio.
func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, max int) OTPRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisOTPRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "ceebrain:otp:rl:",
	}
}

// Allow falla abierto si redis no responde: el limite es una proteccion de
// costo de SMS, no un control de acceso.
func (l *redisOTPRateLimiter) Allow(mobile string) bool {
	if l == nil || l.client == nil {
		return true
	}
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisOTPAllowScript, []string{l.prefix + mobile}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
