package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate bounds how many page-rendering resources are held at once and how
// quickly new ones may be acquired.
type Gate struct {
	maxWorkers int
	semaphore  chan struct{}
	limiter    *rate.Limiter
}

// NewGate creates a Gate admitting at most maxWorkers holders, with at least
// rateLimitMs milliseconds between consecutive acquisitions. A zero rate
// disables the interval.
func NewGate(maxWorkers, rateLimitMs int) *Gate {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rateLimitMs > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Duration(rateLimitMs)*time.Millisecond), 1)
	}

	return &Gate{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		limiter:    limiter,
	}
}

// Acquire blocks until a slot is free and the rate limit allows another
// acquisition. The returned release func must be called exactly once.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		<-g.semaphore
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-g.semaphore })
	}, nil
}

// InUse returns the number of slots currently held.
func (g *Gate) InUse() int {
	return len(g.semaphore)
}

// Capacity returns the maximum number of concurrent holders.
func (g *Gate) Capacity() int {
	return g.maxWorkers
}

// URLSet is a thread-safe set for tracking seen listing links.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// Contains returns true if the URL has already been seen.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
