// Package ratelimit limits requests per client key with fixed-window token
// buckets.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// Remaining tokens in the current window.
	Remaining int
	// RetryAfter is how long until the window resets. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter hands out rate tokens per key and window.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// New creates a Limiter allowing rate requests per window for each key.
// A rate of zero or less blocks everything.
func New(rate int, window time.Duration) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    max(rate, 0),
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go l.cleanup()

	return l
}

// Close stops the background cleanup goroutine. It is safe to call twice.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// Allow takes a token for key if one is left.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.rate, lastReset: now}
		l.buckets[key] = b
	}

	if now.Sub(b.lastReset) >= l.window {
		b.tokens = l.rate
		b.lastReset = now
	}

	if b.tokens > 0 {
		b.tokens--
		return Decision{Allowed: true, Remaining: b.tokens}
	}

	return Decision{RetryAfter: b.lastReset.Add(l.window).Sub(now)}
}

// Limit is the number of requests allowed per window.
func (l *Limiter) Limit() int {
	return l.rate
}

// cleanup drops buckets idle for two windows.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, b := range l.buckets {
				if now.Sub(b.lastReset) > 2*l.window {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}
