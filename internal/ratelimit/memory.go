package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// Client entry housekeeping.
const (
	// DefaultClientTTL is how long an idle client's bucket is kept.
	DefaultClientTTL = 10 * time.Minute

	// cleanupInterval is how often idle buckets are swept.
	cleanupInterval = time.Minute
)

// clientEntry holds a bucket and its last access time for TTL-based cleanup.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter is a per-key token bucket held in process memory.
type MemoryLimiter struct {
	limit     rate.Limit
	requests  int
	burst     int
	clientTTL time.Duration
	logger    observability.Logger

	mu      sync.Mutex
	clients map[string]*clientEntry

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter refills requests tokens per window with the given burst.
// It starts a background sweep of idle clients, stopped by Close.
func NewMemoryLimiter(requests int, window time.Duration, burst int, logger observability.Logger) *MemoryLimiter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	l := &MemoryLimiter{
		limit:     rate.Limit(float64(requests) / window.Seconds()),
		requests:  requests,
		burst:     burst,
		clientTTL: DefaultClientTTL,
		logger:    logger,
		clients:   make(map[string]*clientEntry),
		stopCh:    make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow consumes one token from key's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	now := time.Now()

	l.mu.Lock()
	entry, ok := l.clients[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	l.mu.Unlock()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return &Result{Allowed: false, Limit: l.burst}, nil
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return &Result{
			Allowed:    false,
			Limit:      l.burst,
			RetryAfter: delay,
		}, nil
	}

	remaining := int(math.Floor(limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   true,
		Limit:     l.burst,
		Remaining: remaining,
	}, nil
}

// Store returns "memory".
func (l *MemoryLimiter) Store() string {
	return "memory"
}

// Close stops the cleanup goroutine.
func (l *MemoryLimiter) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
	return nil
}

// clientCount returns the number of tracked clients.
func (l *MemoryLimiter) clientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case now := <-ticker.C:
			l.sweep(now)
		}
	}
}

// sweep drops clients idle for longer than the TTL.
func (l *MemoryLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.clients {
		if now.Sub(entry.lastAccess) > l.clientTTL {
			delete(l.clients, key)
			removed++
		}
	}

	if removed > 0 {
		l.logger.Debug("evicted idle rate limit clients",
			observability.Int("removed", removed),
			observability.Int("remaining", len(l.clients)),
		)
	}
}
