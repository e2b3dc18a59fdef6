package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"chrono-scraper/models"
	"chrono-scraper/storage"
	"chrono-scraper/utils"
)

func testSnapshot(id string, price float64) *models.WatchSnapshot {
	return &models.WatchSnapshot{
		ListingID:    id,
		Category:     "Omega",
		Brand:        "Omega",
		Model:        "Speedmaster",
		Price:        price,
		Currency:     "USD",
		DateGathered: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"upsert", ModeUpsert, false},
		{"insert", ModeInsert, false},
		{"blind-insert", ModeInsert, false},
		{"replace", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestReconcileInsertThenUnchanged(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewReconciler(store, ModeUpsert, newTestLogger())

	snap := testSnapshot("123", 4200)

	decision, err := r.Reconcile(ctx, snap)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if decision != DecisionInserted {
		t.Errorf("first reconcile: got %v, want inserted", decision)
	}

	decision, err = r.Reconcile(ctx, snap)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if decision != DecisionUnchanged {
		t.Errorf("second reconcile: got %v, want unchanged", decision)
	}

	rows, _ := store.FetchDay(ctx, snap.DateGathered)
	if len(rows) != 1 {
		t.Errorf("rows for day: got %d, want 1", len(rows))
	}
}

func TestReconcilePriceChangeConvergence(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewReconciler(store, ModeUpsert, newTestLogger())

	if _, err := r.Reconcile(ctx, testSnapshot("123", 4200)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	decision, err := r.Reconcile(ctx, testSnapshot("123", 3999))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if decision != DecisionUpdated {
		t.Errorf("got %v, want updated", decision)
	}

	stored, err := store.ReadPrice(ctx, "123", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if stored.Price != 3999 {
		t.Errorf("stored price: got %.2f, want 3999", stored.Price)
	}

	rows, _ := store.FetchDay(ctx, stored.DateGathered)
	if len(rows) != 1 {
		t.Errorf("rows for day: got %d, want 1 (update must not insert)", len(rows))
	}
}

func TestReconcileExcludesNonPositivePrice(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewReconciler(store, ModeUpsert, newTestLogger())

	decision, err := r.Reconcile(ctx, testSnapshot("123", 0))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if decision != DecisionExcluded {
		t.Errorf("got %v, want excluded", decision)
	}

	if _, err := store.ReadPrice(ctx, "123", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound for excluded listing, got %v", err)
	}
}

func TestReconcileBlindInsertMode(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewReconciler(store, ModeInsert, newTestLogger())

	// Blind-insert skips the non-positive price filter.
	decision, err := r.Reconcile(ctx, testSnapshot("123", 0))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if decision != DecisionInserted {
		t.Errorf("got %v, want inserted", decision)
	}

	// A second write to the same key is a constraint violation, not a
	// silent update.
	if _, err := r.Reconcile(ctx, testSnapshot("123", 100)); err == nil {
		t.Error("expected error on duplicate blind insert")
	}
}

func TestReconcileIdempotentRun(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewReconciler(store, ModeUpsert, newTestLogger())

	snaps := []*models.WatchSnapshot{
		testSnapshot("1", 100),
		testSnapshot("2", 200),
		testSnapshot("3", 300),
	}

	for _, s := range snaps {
		if _, err := r.Reconcile(ctx, s); err != nil {
			t.Fatalf("first pass: %v", err)
		}
	}

	for _, s := range snaps {
		decision, err := r.Reconcile(ctx, s)
		if err != nil {
			t.Fatalf("second pass: %v", err)
		}
		if decision != DecisionUnchanged {
			t.Errorf("second pass for %s: got %v, want unchanged", s.ListingID, decision)
		}
	}

	rows, _ := store.FetchDay(ctx, snaps[0].DateGathered)
	if len(rows) != 3 {
		t.Errorf("rows after two passes: got %d, want 3", len(rows))
	}
}

func TestReconcileConcurrentSameKey(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewReconciler(store, ModeUpsert, newTestLogger())

	var inserted int64
	pool := utils.NewWorkerPool(8, 0)
	for i := 0; i < 50; i++ {
		pool.Submit(func() {
			decision, err := r.Reconcile(ctx, testSnapshot("123", 4200))
			if err != nil {
				t.Errorf("concurrent reconcile: %v", err)
				return
			}
			if decision == DecisionInserted {
				atomic.AddInt64(&inserted, 1)
			}
		})
	}
	pool.Wait()

	if inserted != 1 {
		t.Errorf("concurrent inserts for one key: got %d, want exactly 1", inserted)
	}

	rows, _ := store.FetchDay(ctx, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if len(rows) != 1 {
		t.Errorf("rows for key: got %d, want 1", len(rows))
	}
}
