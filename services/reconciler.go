package services

import (
	"context"
	"fmt"

	"chrono-scraper/models"
	"chrono-scraper/storage"
	"chrono-scraper/utils"
)

// Mode selects how the reconciler treats existing rows.
type Mode int

const (
	// ModeUpsert classifies each snapshot against the persisted row for
	// its (listing_id, date_gathered) key and excludes non-positive
	// prices as noise.
	ModeUpsert Mode = iota
	// ModeInsert writes every snapshot blindly. Intended for bulk and
	// historical loads where the caller asserts the key space is fresh.
	ModeInsert
)

// ParseMode maps the configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "upsert":
		return ModeUpsert, nil
	case "insert", "blind-insert":
		return ModeInsert, nil
	default:
		return 0, fmt.Errorf("reconciler: unknown mode %q (want upsert or insert)", s)
	}
}

// Decision describes what the reconciler did with one snapshot.
type Decision int

const (
	DecisionInserted Decision = iota
	DecisionUpdated
	DecisionUnchanged
	DecisionExcluded
)

func (d Decision) String() string {
	switch d {
	case DecisionInserted:
		return "inserted"
	case DecisionUpdated:
		return "updated"
	case DecisionUnchanged:
		return "unchanged"
	case DecisionExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Reconciler is the only component that mutates the price store. Each
// snapshot is consumed exactly once and resolves to an insert, a price
// update, a no-op, or an exclusion.
type Reconciler struct {
	store  storage.PriceStore
	mode   Mode
	logger *utils.Logger
}

// NewReconciler creates a Reconciler writing through the given store.
func NewReconciler(store storage.PriceStore, mode Mode, logger *utils.Logger) *Reconciler {
	return &Reconciler{store: store, mode: mode, logger: logger}
}

// Reconcile applies one snapshot to the store. The three-way decision in
// upsert mode happens inside the store's atomic upsert, so concurrent
// writers targeting the same key cannot lose an update.
func (r *Reconciler) Reconcile(ctx context.Context, snap *models.WatchSnapshot) (Decision, error) {
	if r.mode == ModeInsert {
		if err := r.store.InsertPrice(ctx, snap); err != nil {
			return 0, err
		}
		return DecisionInserted, nil
	}

	// Listings without a usable price are noise, not data.
	if snap.Price <= 0 {
		r.logger.Debug("[reconciler] Excluding listing %s (non-positive price)", snap.ListingID)
		return DecisionExcluded, nil
	}

	outcome, err := r.store.UpsertPrice(ctx, snap)
	if err != nil {
		return 0, err
	}

	switch outcome {
	case storage.OutcomeInserted:
		return DecisionInserted, nil
	case storage.OutcomeUpdated:
		r.logger.Debug("[reconciler] Price changed for listing %s → %.2f", snap.ListingID, snap.Price)
		return DecisionUpdated, nil
	default:
		return DecisionUnchanged, nil
	}
}
