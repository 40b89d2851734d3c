package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spreadinsight/newsbot/internal/logger"
)

// ErrLimitExceeded is returned once a provider or the overall budget is spent.
var ErrLimitExceeded = errors.New("ai rate limit exceeded")

// Limiter caps how many model calls one process may make per window.
// A limit of 0 means unlimited.
type Limiter struct {
	mu        sync.Mutex
	limits    map[string]int
	counts    map[string]int
	maxTotal  int
	total     int
	cacheHits int
	window    time.Duration
	resetTime time.Time
	now       func() time.Time
}

// New creates a limiter. limits maps provider name to its budget.
func New(limits map[string]int, maxTotal int, window time.Duration) *Limiter {
	l := &Limiter{
		limits:   make(map[string]int, len(limits)),
		counts:   make(map[string]int),
		maxTotal: maxTotal,
		window:   window,
		now:      time.Now,
	}
	for k, v := range limits {
		l.limits[k] = v
	}
	l.resetTime = l.now().Add(window)
	return l
}

// Allow reports whether provider still has budget, without consuming it.
func (l *Limiter) Allow(provider string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()
	return l.check(provider) == nil
}

// Use consumes one call for provider.
func (l *Limiter) Use(provider string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.checkReset()
	if err := l.check(provider); err != nil {
		logger.Warn("AI rate limit reached", "provider", provider, "used", l.counts[provider], "limit", l.limits[provider])
		return err
	}

	l.counts[provider]++
	l.total++
	logger.Debug("AI usage", "provider", provider, "used", l.counts[provider], "total", l.total)
	return nil
}

// RecordCacheHit counts a call avoided through the analysis cache.
func (l *Limiter) RecordCacheHit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cacheHits++
}

func (l *Limiter) check(provider string) error {
	if limit := l.limits[provider]; limit > 0 && l.counts[provider] >= limit {
		return fmt.Errorf("%w: %s (%d/%d)", ErrLimitExceeded, provider, l.counts[provider], limit)
	}
	if l.maxTotal > 0 && l.total >= l.maxTotal {
		return fmt.Errorf("%w: total (%d/%d)", ErrLimitExceeded, l.total, l.maxTotal)
	}
	return nil
}

// checkReset clears counters once the window has passed. Callers hold mu.
func (l *Limiter) checkReset() {
	if l.window <= 0 || !l.now().After(l.resetTime) {
		return
	}
	logger.Info("Resetting AI rate limiter counters", "total", l.total, "cache_hits", l.cacheHits)
	l.counts = make(map[string]int)
	l.total = 0
	l.cacheHits = 0
	l.resetTime = l.now().Add(l.window)
}

func (l *Limiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  l.total,
		"total_limit": l.maxTotal,
		"cache_hits":  l.cacheHits,
		"reset_time":  l.resetTime,
	}
	for provider, limit := range l.limits {
		stats[provider+"_used"] = l.counts[provider]
		stats[provider+"_limit"] = limit
	}
	return stats
}
