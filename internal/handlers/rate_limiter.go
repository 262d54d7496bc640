package handlers

import (
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// windowRateLimiter admits up to limit calls per key within a fixed window.
// Entries expire lazily; memory stays bounded by the active key set.
type windowRateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu    sync.Mutex
	store map[string]windowEntry
}

type windowEntry struct {
	count int
	reset time.Time
}

func newWindowRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowRateLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]windowEntry),
	}
}

func (l *windowRateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.store[key]
	if !ok || now.After(entry.reset) {
		l.store[key] = windowEntry{count: 1, reset: now.Add(l.window)}
		l.pruneLocked(now)
		return true
	}
	if entry.count >= l.limit {
		return false
	}
	entry.count++
	l.store[key] = entry
	return true
}

func (l *windowRateLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.store {
		if now.After(entry.reset) {
			delete(l.store, key)
		}
	}
}
