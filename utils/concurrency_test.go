package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestURLSetNoDuplicates(t *testing.T) {
	s := NewURLSet()

	added := s.Add("https://mg.olx.com.br/celulares/iphone-1")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("https://mg.olx.com.br/celulares/iphone-1")
	if added {
		t.Error("second Add of same URL should return false")
	}

	if !s.Contains("https://mg.olx.com.br/celulares/iphone-1") {
		t.Error("Contains should report an added URL")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestURLSetConcurrency(t *testing.T) {
	s := NewURLSet()
	var added int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("https://mg.olx.com.br/same") {
				atomic.AddInt64(&added, 1)
			}
		}()
	}
	wg.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestGateBoundsHolders(t *testing.T) {
	g := NewGate(2, 0)
	ctx := context.Background()

	var current, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(ctx)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt64(&current, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&current, -1)
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak holders: got %d, want <= 2", peak)
	}
	if g.InUse() != 0 {
		t.Errorf("InUse after release: got %d, want 0", g.InUse())
	}
}

func TestGateRateLimit(t *testing.T) {
	rateLimitMs := 50
	g := NewGate(1, rateLimitMs)
	ctx := context.Background()

	var timestamps []time.Time
	for i := 0; i < 3; i++ {
		release, err := g.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		timestamps = append(timestamps, time.Now())
		release()
	}

	min := time.Duration(rateLimitMs)*time.Millisecond - 5*time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between acquisition %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestGateAcquireHonoursCancellation(t *testing.T) {
	g := NewGate(1, 0)
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := g.Acquire(ctx); err == nil {
		t.Error("expected error acquiring a full gate with an expiring context")
	}
}

func TestGateReleaseIsIdempotent(t *testing.T) {
	g := NewGate(1, 0)
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
	release()

	if g.InUse() != 0 {
		t.Errorf("InUse: got %d, want 0", g.InUse())
	}
}
