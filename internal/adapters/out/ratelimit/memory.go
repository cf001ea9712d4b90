// Package ratelimit provides the per-client request limiter used by the API.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bnema/dockmaster/internal/boundaries/out"
)

var _ out.RateLimiter = (*MemoryStore)(nil)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key in memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	rps     float64
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewMemoryStore creates a store allowing rps requests per second per key
// with the given burst. Keys unused for idleTTL are evicted by Sweep.
func NewMemoryStore(rps float64, burst int, idleTTL time.Duration, log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		rps:     rps,
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		log:     log,
	}
}

// Allow reports whether a request identified by key may proceed.
func (s *MemoryStore) Allow(_ context.Context, key string) bool {
	allowed := s.limiter(key).Allow()
	if !allowed {
		s.log.Debug().Str("key", key).Msg("rate limited")
	}
	return allowed
}

// AllowN reports whether n requests identified by key may proceed.
func (s *MemoryStore) AllowN(_ context.Context, key string, n int) bool {
	return s.limiter(key).AllowN(s.now(), n)
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops keys idle for longer than the configured TTL and returns how
// many were removed.
func (s *MemoryStore) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle keys every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug().Int("evicted", n).Int("remaining", s.Len()).Msg("rate limiter sweep")
			}
		}
	}
}

func (s *MemoryStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = s.now()
	return e.limiter
}
