package device

import (
	"sync"
	"time"
)

const (
	backoffBase = time.Second
	backoffCap  = 5 * time.Minute
)

type attemptState struct {
	failures  int
	blockedTo time.Time
}

// RateLimiter throttles user-code verification attempts per caller. Each
// failed attempt doubles the lockout, a successful verification clears it.
// Keys combine the user code and the caller identity so one attacker cannot
// lock out a legitimate user on a different code.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptState
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{attempts: make(map[string]*attemptState), now: time.Now}
}

// WithClock overrides the time source for tests.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// Allow reports whether the caller may attempt verification now. When
// blocked, retryAfter is the remaining lockout.
func (r *RateLimiter) Allow(key string) (retryAfter time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, exists := r.attempts[key]
	if !exists {
		return 0, true
	}
	now := r.now()
	if now.Before(state.blockedTo) {
		return state.blockedTo.Sub(now), false
	}
	return 0, true
}

// Fail records a failed attempt and arms the next lockout window.
func (r *RateLimiter) Fail(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, exists := r.attempts[key]
	if !exists {
		state = &attemptState{}
		r.attempts[key] = state
	}
	state.failures++
	backoff := backoffBase << (state.failures - 1)
	if backoff > backoffCap || backoff <= 0 {
		backoff = backoffCap
	}
	state.blockedTo = r.now().Add(backoff)
}

// Reset clears the caller's history after a successful verification.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, key)
}
