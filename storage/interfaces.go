package storage

import (
	"context"
	"errors"
	"time"

	"chrono-scraper/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: row not found")

// Outcome is the result of an atomic upsert against the price table.
type Outcome int

const (
	// OutcomeInserted means no row existed for (listing_id, date_gathered).
	OutcomeInserted Outcome = iota
	// OutcomeUpdated means a row existed with a different price; only the
	// price column was rewritten.
	OutcomeUpdated
	// OutcomeUnchanged means a row existed with an identical price and
	// nothing was written.
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// PriceStore is the gateway contract the reconciler mutates the store
// through. UpsertPrice must collapse the lookup-then-branch decision into
// one atomic operation per (listing_id, date_gathered) key so concurrent
// writers targeting the same key cannot lose an update.
type PriceStore interface {
	UpsertPrice(ctx context.Context, snap *models.WatchSnapshot) (Outcome, error)
	// InsertPrice persists snap without a duplicate check. Callers assert
	// the key space is fresh; a constraint violation surfaces as an error.
	InsertPrice(ctx context.Context, snap *models.WatchSnapshot) error
	ReadPrice(ctx context.Context, listingID string, day time.Time) (*models.WatchSnapshot, error)
	InsertDetail(ctx context.Context, d *models.WatchDetail) error
	FetchDay(ctx context.Context, day time.Time) ([]*models.WatchSnapshot, error)
	Close() error
}
