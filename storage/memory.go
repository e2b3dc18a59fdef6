package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chrono-scraper/models"
)

// Memory is an in-process PriceStore used by tests and dry runs. A single
// mutex serializes every write, which gives it the same per-key atomicity
// the Postgres upsert provides.
type Memory struct {
	mu      sync.Mutex
	prices  map[string]*models.WatchSnapshot
	details map[string]*models.WatchDetail
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		prices:  make(map[string]*models.WatchSnapshot),
		details: make(map[string]*models.WatchDetail),
	}
}

func key(listingID string, day time.Time) string {
	return listingID + "|" + day.Format("2006-01-02")
}

func (m *Memory) UpsertPrice(_ context.Context, s *models.WatchSnapshot) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(s.ListingID, s.DateGathered)
	existing, ok := m.prices[k]
	if !ok {
		cp := *s
		m.prices[k] = &cp
		return OutcomeInserted, nil
	}
	if existing.Price == s.Price {
		return OutcomeUnchanged, nil
	}
	existing.Price = s.Price
	return OutcomeUpdated, nil
}

func (m *Memory) InsertPrice(_ context.Context, s *models.WatchSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(s.ListingID, s.DateGathered)
	if _, ok := m.prices[k]; ok {
		return fmt.Errorf("memory: duplicate key (%s, %s)", s.ListingID, s.DateGathered.Format("2006-01-02"))
	}
	cp := *s
	m.prices[k] = &cp
	return nil
}

func (m *Memory) ReadPrice(_ context.Context, listingID string, day time.Time) (*models.WatchSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.prices[key(listingID, day)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) InsertDetail(_ context.Context, d *models.WatchDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(d.ListingID, d.DateGathered)
	if _, ok := m.details[k]; ok {
		return nil
	}
	cp := *d
	m.details[k] = &cp
	return nil
}

func (m *Memory) FetchDay(_ context.Context, day time.Time) ([]*models.WatchSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snaps []*models.WatchSnapshot
	for _, s := range m.prices {
		if s.DateGathered.Equal(day) {
			cp := *s
			snaps = append(snaps, &cp)
		}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ListingID < snaps[j].ListingID })
	return snaps, nil
}

// DetailCount returns the number of stored detail rows.
func (m *Memory) DetailCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.details)
}

func (m *Memory) Close() error {
	return nil
}
