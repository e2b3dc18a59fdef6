package models

import "time"

// RawRecord holds one unprocessed listing exactly as the catalog source
// returned it. All value fields are strings because the source makes no
// type guarantees; normalization happens in services.Normalizer.
type RawRecord struct {
	ID                  string
	Manufacturer        string
	Title               string
	Price               string
	ShippingPrice       string
	CertificationStatus string
	Condition           string
	Description         string
	URL                 string
	MerchantName        string
	Location            string
	Badge               string
	ImageURLs           []string
	FetchedAt           time.Time
}

// RawDetailRecord is the detail-enriched counterpart of RawRecord,
// gathered from a listing's own page rather than the search results.
type RawDetailRecord struct {
	ID                  string
	YearOfProduction    string
	ScopeOfDelivery     string
	Availability        string
	CaseDiameter        string
	BraceletColor       string
	AnticipatedDelivery string
	MerchantRating      string
	MerchantReviews     string
}

// WatchSnapshot is the normalized, validated record ready for storage.
// Its natural key is (ListingID, DateGathered): at most one price row
// per listing per day.
type WatchSnapshot struct {
	ListingID           string
	Category            string
	Brand               string
	Model               string
	Price               float64
	ShippingPrice       float64
	CertificationStatus string
	Currency            string
	Condition           string
	Description         string
	URL                 string
	MerchantName        string
	Location            string
	Badge               string
	ImageURL            string
	DateGathered        time.Time
}

// WatchDetail holds the optional per-listing attributes gathered from
// detail pages. Keyed by ListingID alongside the snapshot table.
type WatchDetail struct {
	ListingID           string
	ProductionYear      string
	DeliveryScope       string
	Availability        string
	CaseDiameter        string
	BraceletColor       string
	AnticipatedDelivery string
	MerchantRating      float64
	MerchantReviews     int
	DateGathered        time.Time
}

// DateOnly truncates t to a calendar date in UTC. Every row written
// during one run carries the same DateGathered value.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CategoryResult aggregates the outcome of processing one category.
type CategoryResult struct {
	Category       string
	Fetched        int
	DetailRows     int
	Inserted       int
	Updated        int
	Unchanged      int
	Excluded       int
	FailedWrites   int
	CoercedFields  int
	FetchErr       error
	DetailFetchErr error
	Elapsed        time.Duration
}

// Succeeded reports whether the category completed without any fetch
// or persistence failure.
func (c *CategoryResult) Succeeded() bool {
	return c.FetchErr == nil && c.DetailFetchErr == nil && c.FailedWrites == 0
}

// RunSummary is produced by every pipeline run, including runs where
// individual categories failed.
type RunSummary struct {
	Day        time.Time
	StartedAt  time.Time
	Elapsed    time.Duration
	Categories []*CategoryResult

	Processed     int
	DetailRows    int
	Inserted      int
	Updated       int
	Unchanged     int
	Excluded      int
	FailedWrites  int
	CoercedFields int
}

// FailedCategories returns the names of categories that did not complete
// cleanly, in processing order.
func (s *RunSummary) FailedCategories() []string {
	var failed []string
	for _, c := range s.Categories {
		if !c.Succeeded() {
			failed = append(failed, c.Category)
		}
	}
	return failed
}

// AllSucceeded reports whether every category completed cleanly.
func (s *RunSummary) AllSucceeded() bool {
	return len(s.FailedCategories()) == 0
}

// MarketReport holds the post-run price statistics computed over the
// day's persisted snapshots.
type MarketReport struct {
	TotalListings      int
	AveragePrice       float64
	MinPrice           float64
	MaxPrice           float64
	MostExpensive      *WatchSnapshot
	ListingsByBrand    map[string]int
	ListingsByLocation map[string]int
}
