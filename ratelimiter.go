package skyfetch

import (
	"sync/atomic"
	"time"
)

// RateLimiter is a token bucket limiting how often fetch attempts may hit the
// upstream weather API. Optional; configure with WithRateLimiter.
type RateLimiter struct {
	tokens     int64
	maxTokens  int64
	refillRate time.Duration
	lastRefill int64
}

// NewRateLimiter creates a rate limiter that refills one token per refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		maxTokens:  int64(maxTokens),
		tokens:     int64(maxTokens),
		refillRate: refillRate,
		lastRefill: time.Now().UnixNano(),
	}
}

// Allow checks if a request is allowed by the rate limiter.
func (rl *RateLimiter) Allow() bool {
	rl.refillTokens()
	return rl.consumeToken()
}

// refillTokens refills tokens based on elapsed time since last refill.
func (rl *RateLimiter) refillTokens() {
	now := time.Now().UnixNano()

	for {
		currentTokens := atomic.LoadInt64(&rl.tokens)
		lastRefill := atomic.LoadInt64(&rl.lastRefill)

		elapsed := now - lastRefill
		tokensToAdd := int64(0)
		if rl.refillRate > 0 {
			tokensToAdd = elapsed / int64(rl.refillRate)
		}

		if tokensToAdd == 0 {
			break
		}

		newTokens := currentTokens + tokensToAdd
		if newTokens > rl.maxTokens {
			newTokens = rl.maxTokens
		}

		newLastRefill := lastRefill + (tokensToAdd * int64(rl.refillRate))

		if !atomic.CompareAndSwapInt64(&rl.lastRefill, lastRefill, newLastRefill) {
			continue
		}

		atomic.StoreInt64(&rl.tokens, newTokens)
		break
	}
}

// consumeToken attempts to consume one token.
func (rl *RateLimiter) consumeToken() bool {
	for {
		currentTokens := atomic.LoadInt64(&rl.tokens)
		if currentTokens <= 0 {
			return false
		}

		if atomic.CompareAndSwapInt64(&rl.tokens, currentTokens, currentTokens-1) {
			return true
		}
	}
}
