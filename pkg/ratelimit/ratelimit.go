// Package ratelimit provides a token bucket used to pace outbound
// requests against the betting site, independent of the server's own
// 429 responses.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket refills at rate tokens per second up to capacity.
// Fractional refill keeps slow rates (e.g. one request every two
// seconds) accurate. The bucket never blocks: callers that need to
// wait ask RetryIn and decide for themselves.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	rate     float64
	last     time.Time
}

// NewTokenBucket returns a full bucket. rate is tokens per second;
// zero or negative values mean no refill.
func NewTokenBucket(capacity int, rate float64) *TokenBucket {
	c := float64(capacity)
	if c < 1 {
		c = 1
	}
	return &TokenBucket{
		capacity: c,
		tokens:   c,
		rate:     rate,
		last:     time.Now(),
	}
}

func (tb *TokenBucket) refill(now time.Time) {
	if tb.rate <= 0 {
		return
	}
	elapsed := now.Sub(tb.last).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.last = now
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// RetryIn reports how long until one token will be available. Zero
// means a token is available now; a bucket that never refills reports
// a full second as a safe floor.
func (tb *TokenBucket) RetryIn() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	if tb.tokens >= 1 {
		return 0
	}
	if tb.rate <= 0 {
		return time.Second
	}
	missing := 1 - tb.tokens
	return time.Duration(missing / tb.rate * float64(time.Second))
}

// Remaining reports the whole tokens currently available.
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	return int(tb.tokens)
}
