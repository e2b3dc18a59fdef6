package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"chrono-scraper/models"
)

// Postgres owns the database connection pool and implements PriceStore
// against the chrono schema.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool, verifies connectivity with a few
// ping retries, runs schema migrations, and returns a ready-to-use store.
// A nil error guarantees the run can proceed; any error here is fatal for
// the whole run.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return p, nil
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`
		CREATE SCHEMA IF NOT EXISTS chrono;

		CREATE TABLE IF NOT EXISTS chrono.watch_prices (
			id                   BIGSERIAL PRIMARY KEY,
			listing_id           TEXT          NOT NULL,
			category             VARCHAR(50)   NOT NULL,
			brand                TEXT          NOT NULL DEFAULT 'Unknown',
			model                TEXT          NOT NULL DEFAULT 'Unknown',
			price                NUMERIC(12,2) NOT NULL DEFAULT 0,
			shipping_price       NUMERIC(12,2) NOT NULL DEFAULT 0,
			certification_status TEXT          NOT NULL DEFAULT 'Unknown',
			currency             VARCHAR(10)   NOT NULL DEFAULT 'USD',
			condition            TEXT          NOT NULL DEFAULT 'Unknown',
			description          TEXT          NOT NULL DEFAULT '',
			url                  TEXT          NOT NULL DEFAULT '',
			merchant_name        TEXT          NOT NULL DEFAULT 'Unknown',
			location             TEXT          NOT NULL DEFAULT 'Unknown',
			badge                TEXT          NOT NULL DEFAULT 'Unknown',
			image_url            TEXT          NOT NULL DEFAULT '',
			date_gathered        DATE          NOT NULL,
			UNIQUE (listing_id, date_gathered)
		);

		CREATE TABLE IF NOT EXISTS chrono.watch_details (
			id                   BIGSERIAL PRIMARY KEY,
			listing_id           TEXT          NOT NULL,
			production_year      TEXT          NOT NULL DEFAULT 'Unknown',
			delivery_scope       TEXT          NOT NULL DEFAULT 'Unknown',
			availability         TEXT          NOT NULL DEFAULT 'Unknown',
			case_diameter        TEXT          NOT NULL DEFAULT 'Unknown',
			bracelet_color       TEXT          NOT NULL DEFAULT 'Unknown',
			anticipated_delivery TEXT          NOT NULL DEFAULT 'Unknown',
			merchant_rating      NUMERIC(6,2)  NOT NULL DEFAULT 0,
			merchant_reviews     INTEGER       NOT NULL DEFAULT 0,
			date_gathered        DATE          NOT NULL,
			UNIQUE (listing_id, date_gathered)
		);

		CREATE INDEX IF NOT EXISTS idx_watch_prices_brand ON chrono.watch_prices(brand);
		CREATE INDEX IF NOT EXISTS idx_watch_prices_date  ON chrono.watch_prices(date_gathered);
		CREATE INDEX IF NOT EXISTS idx_watch_prices_price ON chrono.watch_prices(price);
	`)
	return err
}

const priceColumns = `listing_id, category, brand, model, price, shipping_price,
	certification_status, currency, condition, description, url,
	merchant_name, location, badge, image_url, date_gathered`

// UpsertPrice applies the insert/update/no-op decision in a single
// statement. The conditional DO UPDATE only fires when the stored price
// differs, so an identical snapshot touches no row at all; (xmax = 0)
// distinguishes a fresh insert from an update of an existing row.
func (p *Postgres) UpsertPrice(ctx context.Context, s *models.WatchSnapshot) (Outcome, error) {
	query := fmt.Sprintf(`
		INSERT INTO chrono.watch_prices AS wp (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (listing_id, date_gathered)
		DO UPDATE SET price = EXCLUDED.price
		WHERE wp.price IS DISTINCT FROM EXCLUDED.price
		RETURNING (xmax = 0)
	`, priceColumns)

	var inserted bool
	err := p.db.QueryRowContext(ctx, query,
		s.ListingID, s.Category, s.Brand, s.Model, s.Price, s.ShippingPrice,
		s.CertificationStatus, s.Currency, s.Condition, s.Description, s.URL,
		s.MerchantName, s.Location, s.Badge, s.ImageURL, s.DateGathered,
	).Scan(&inserted)

	if errors.Is(err, sql.ErrNoRows) {
		return OutcomeUnchanged, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert listing %s: %w", s.ListingID, err)
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// InsertPrice persists the snapshot without any duplicate check. Used by
// the blind-insert reconciliation mode for bulk/historical loads.
func (p *Postgres) InsertPrice(ctx context.Context, s *models.WatchSnapshot) error {
	query := fmt.Sprintf(`
		INSERT INTO chrono.watch_prices (%s)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, priceColumns)

	_, err := p.db.ExecContext(ctx, query,
		s.ListingID, s.Category, s.Brand, s.Model, s.Price, s.ShippingPrice,
		s.CertificationStatus, s.Currency, s.Condition, s.Description, s.URL,
		s.MerchantName, s.Location, s.Badge, s.ImageURL, s.DateGathered,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert listing %s: %w", s.ListingID, err)
	}
	return nil
}

// ReadPrice returns the persisted snapshot for one (listing_id, day) key,
// or ErrNotFound.
func (p *Postgres) ReadPrice(ctx context.Context, listingID string, day time.Time) (*models.WatchSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM chrono.watch_prices
		WHERE listing_id = $1 AND date_gathered = $2
	`, priceColumns)

	s := &models.WatchSnapshot{}
	err := p.db.QueryRowContext(ctx, query, listingID, day).Scan(
		&s.ListingID, &s.Category, &s.Brand, &s.Model, &s.Price, &s.ShippingPrice,
		&s.CertificationStatus, &s.Currency, &s.Condition, &s.Description, &s.URL,
		&s.MerchantName, &s.Location, &s.Badge, &s.ImageURL, &s.DateGathered,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: read listing %s: %w", listingID, err)
	}
	return s, nil
}

// InsertDetail persists one detail row. Re-runs on the same day are
// absorbed by the (listing_id, date_gathered) key.
func (p *Postgres) InsertDetail(ctx context.Context, d *models.WatchDetail) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO chrono.watch_details (
			listing_id, production_year, delivery_scope, availability,
			case_diameter, bracelet_color, anticipated_delivery,
			merchant_rating, merchant_reviews, date_gathered
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (listing_id, date_gathered) DO NOTHING
	`,
		d.ListingID, d.ProductionYear, d.DeliveryScope, d.Availability,
		d.CaseDiameter, d.BraceletColor, d.AnticipatedDelivery,
		d.MerchantRating, d.MerchantReviews, d.DateGathered,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert detail %s: %w", d.ListingID, err)
	}
	return nil
}

// FetchDay retrieves every snapshot gathered on the given day — used by
// the post-run market report.
func (p *Postgres) FetchDay(ctx context.Context, day time.Time) ([]*models.WatchSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM chrono.watch_prices
		WHERE date_gathered = $1
		ORDER BY listing_id
	`, priceColumns)

	rows, err := p.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch day: %w", err)
	}
	defer rows.Close()

	var snaps []*models.WatchSnapshot
	for rows.Next() {
		s := &models.WatchSnapshot{}
		if err := rows.Scan(
			&s.ListingID, &s.Category, &s.Brand, &s.Model, &s.Price, &s.ShippingPrice,
			&s.CertificationStatus, &s.Currency, &s.Condition, &s.Description, &s.URL,
			&s.MerchantName, &s.Location, &s.Badge, &s.ImageURL, &s.DateGathered,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
