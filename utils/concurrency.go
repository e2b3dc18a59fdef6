package utils

import (
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines and enforces a
// minimum interval between job starts. The interval is how the pipeline
// keeps its politeness delay toward the remote source: no two category
// fetches ever start closer together than the configured gap, and the
// wait happens before the job holds any database resource.
type WorkerPool struct {
	maxWorkers  int
	minInterval time.Duration
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastStart   time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency bound and
// minimum interval between job starts.
func NewWorkerPool(maxWorkers int, minInterval time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		maxWorkers:  maxWorkers,
		minInterval: minInterval,
		semaphore:   make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job for execution in the pool.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.pace()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) pace() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.lastStart.IsZero() {
		if elapsed := time.Since(wp.lastStart); elapsed < wp.minInterval {
			time.Sleep(wp.minInterval - elapsed)
		}
	}
	wp.lastStart = time.Now()
}

// IDSet is a thread-safe set for tracking listing ids already handled
// within a run, so duplicate cards across result pages reconcile once.
type IDSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewIDSet creates an empty IDSet.
func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[string]struct{})}
}

// Add returns true if the id was newly added, false if already present.
func (s *IDSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Contains returns true if the id has already been tracked.
func (s *IDSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[id]
	return exists
}

// Size returns the number of unique ids tracked.
func (s *IDSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
