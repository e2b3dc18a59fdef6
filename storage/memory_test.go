package storage

import (
	"context"
	"testing"
	"time"

	"chrono-scraper/models"
)

func snapshot(id string, price float64) *models.WatchSnapshot {
	return &models.WatchSnapshot{
		ListingID:    id,
		Category:     "Rolex",
		Brand:        "Rolex",
		Model:        "Submariner",
		Price:        price,
		DateGathered: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryUpsertOutcomes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	out, err := m.UpsertPrice(ctx, snapshot("1", 100))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if out != OutcomeInserted {
		t.Errorf("first upsert: got %v, want inserted", out)
	}

	out, _ = m.UpsertPrice(ctx, snapshot("1", 100))
	if out != OutcomeUnchanged {
		t.Errorf("identical upsert: got %v, want unchanged", out)
	}

	out, _ = m.UpsertPrice(ctx, snapshot("1", 90))
	if out != OutcomeUpdated {
		t.Errorf("changed upsert: got %v, want updated", out)
	}

	stored, err := m.ReadPrice(ctx, "1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if stored.Price != 90 {
		t.Errorf("stored price: got %.2f, want 90", stored.Price)
	}
}

func TestMemoryReadMissingRow(t *testing.T) {
	m := NewMemory()

	_, err := m.ReadPrice(context.Background(), "nope", time.Now())
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryBlindInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.InsertPrice(ctx, snapshot("1", 100)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.InsertPrice(ctx, snapshot("1", 100)); err == nil {
		t.Error("expected duplicate key error")
	}
}

func TestMemoryDetailRerunAbsorbed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	d := &models.WatchDetail{
		ListingID:    "1",
		DateGathered: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := m.InsertDetail(ctx, d); err != nil {
		t.Fatalf("first detail insert: %v", err)
	}
	if err := m.InsertDetail(ctx, d); err != nil {
		t.Fatalf("second detail insert: %v", err)
	}
	if m.DetailCount() != 1 {
		t.Errorf("detail rows: got %d, want 1", m.DetailCount())
	}
}
