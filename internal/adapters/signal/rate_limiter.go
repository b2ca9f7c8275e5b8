package signal

import "golang.org/x/time/rate"

// frameLimiter bounds how fast one connection may push frames of any type.
// Chat cooldown is a separate, per-room rule enforced by the dispatcher.
type frameLimiter struct {
	limiter *rate.Limiter
}

func newFrameLimiter(perSecond float64, burst int) *frameLimiter {
	return &frameLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *frameLimiter) Allow() bool {
	return l.limiter.Allow()
}
