package guard

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-connection token bucket refilled evenly over a minute
// with a burst of the full minute's allowance. A nil limiter, or one built
// with a non-positive limit, allows everything.
type RateLimiter struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRateLimiter allows limit events per minute.
func NewRateLimiter(limit int) *RateLimiter {
	return newRateLimiter(limit, time.Now)
}

func newRateLimiter(limit int, now func() time.Time) *RateLimiter {
	if limit <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit),
		now:     now,
	}
}

// Allow takes one token and reports whether one was available.
func (r *RateLimiter) Allow() bool {
	if r == nil || r.limiter == nil {
		return true
	}
	return r.limiter.AllowN(r.now(), 1)
}
