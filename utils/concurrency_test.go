package utils

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestIDSetNoDuplicates(t *testing.T) {
	s := NewIDSet()

	added := s.Add("31906996")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("31906996")
	if added {
		t.Error("second Add of same id should return false")
	}

	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestIDSetConcurrency(t *testing.T) {
	s := NewIDSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			if s.Add("same-id") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolMinInterval(t *testing.T) {
	interval := 100 * time.Millisecond
	pool := NewWorkerPool(1, interval)

	var timestamps []time.Time
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			<-mu
			timestamps = append(timestamps, time.Now())
			mu <- struct{}{}
		})
	}
	pool.Wait()

	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < interval {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, interval)
		}
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	var running, peak int64
	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 2 {
		t.Errorf("observed %d concurrent jobs, bound is 2", peak)
	}
}
