// Copyright (c) Wirebound
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides message rate limiting using the token
// bucket algorithm.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrRateLimitExceeded is returned when rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// TokenBucket implements the token bucket algorithm for rate limiting.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int64
	tokens     int64
	refillRate int64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a new token bucket rate limiter.
// capacity is the maximum number of tokens.
// refillRate is the number of tokens added per second.
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if one message should be allowed.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN checks if N messages should be allowed.
func (tb *TokenBucket) AllowN(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}

	return false
}

// refill adds tokens based on elapsed time.
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tokensToAdd := int64(elapsed * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// Available returns the number of available tokens.
func (tb *TokenBucket) Available() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}

// Limiter manages per-session rate limiters.
type Limiter struct {
	mu          sync.RWMutex
	limiters    map[string]*TokenBucket
	capacity    int64
	refillRate  int64
	maxSessions int
}

// NewLimiter creates a new rate limiter with per-session tracking.
// maxSessions bounds the number of tracked sessions; zero selects 10000.
func NewLimiter(capacity, refillRate int64, maxSessions int) *Limiter {
	if maxSessions == 0 {
		maxSessions = 10000
	}

	return &Limiter{
		limiters:    make(map[string]*TokenBucket),
		capacity:    capacity,
		refillRate:  refillRate,
		maxSessions: maxSessions,
	}
}

// Allow checks if a message from the given session should be allowed.
func (l *Limiter) Allow(sessionID string) bool {
	return l.AllowN(sessionID, 1)
}

// AllowN checks if N messages from the given session should be allowed.
func (l *Limiter) AllowN(sessionID string, n int64) bool {
	l.mu.RLock()
	tb, exists := l.limiters[sessionID]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		// Double-check after acquiring write lock
		tb, exists = l.limiters[sessionID]
		if !exists {
			if len(l.limiters) >= l.maxSessions {
				l.mu.Unlock()
				return false
			}

			tb = NewTokenBucket(l.capacity, l.refillRate)
			l.limiters[sessionID] = tb
		}
		l.mu.Unlock()
	}

	return tb.AllowN(n)
}

// Remove drops a session's rate limiter. The server calls this on
// disconnect so tracked sessions do not grow without bound.
func (l *Limiter) Remove(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, sessionID)
}

// Stats returns the number of tracked sessions.
func (l *Limiter) Stats() (sessions int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
