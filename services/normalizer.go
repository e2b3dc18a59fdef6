package services

import (
	"strconv"
	"strings"
	"time"

	"chrono-scraper/models"
	"chrono-scraper/utils"
)

const (
	placeholderUnknown = "Unknown"
	placeholderNoDesc  = "No description available"
	defaultCurrency    = "USD"
)

// moneyCleaner strips the currency symbols and grouping separators the
// source mixes into its price strings.
var moneyCleaner = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "", " ", "")

// Normalizer converts loosely-typed raw records into validated snapshots.
// It never fails a record: a field that cannot be parsed is coerced to a
// documented default, and the coercion is counted so the run summary can
// report how much was lost.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize builds a WatchSnapshot from one raw search record. The second
// return value is the number of fields that had to be coerced.
func (n *Normalizer) Normalize(raw *models.RawRecord, category string, day time.Time) (*models.WatchSnapshot, int) {
	coerced := 0

	snap := &models.WatchSnapshot{
		ListingID:           defaultStr(raw.ID, "0"),
		Category:            category,
		Brand:               defaultStr(raw.Manufacturer, placeholderUnknown),
		Model:               defaultStr(raw.Title, placeholderUnknown),
		Price:               n.parseMoney(raw.Price, &coerced),
		ShippingPrice:       n.parseMoney(raw.ShippingPrice, &coerced),
		CertificationStatus: defaultStr(raw.CertificationStatus, placeholderUnknown),
		Currency:            defaultCurrency,
		Condition:           defaultStr(raw.Condition, placeholderUnknown),
		Description:         defaultStr(raw.Description, placeholderNoDesc),
		URL:                 strings.TrimSpace(raw.URL),
		MerchantName:        defaultStr(raw.MerchantName, placeholderUnknown),
		Location:            defaultStr(raw.Location, placeholderUnknown),
		Badge:               defaultStr(raw.Badge, placeholderUnknown),
		DateGathered:        models.DateOnly(day),
	}

	if len(raw.ImageURLs) > 0 {
		snap.ImageURL = raw.ImageURLs[0]
	}

	return snap, coerced
}

// NormalizeDetail builds a WatchDetail from one raw detail record. The
// second return value is the number of coerced fields.
func (n *Normalizer) NormalizeDetail(raw *models.RawDetailRecord, day time.Time) (*models.WatchDetail, int) {
	coerced := 0

	return &models.WatchDetail{
		ListingID:           defaultStr(raw.ID, "0"),
		ProductionYear:      defaultStr(raw.YearOfProduction, placeholderUnknown),
		DeliveryScope:       defaultStr(raw.ScopeOfDelivery, placeholderUnknown),
		Availability:        defaultStr(raw.Availability, placeholderUnknown),
		CaseDiameter:        defaultStr(raw.CaseDiameter, placeholderUnknown),
		BraceletColor:       defaultStr(raw.BraceletColor, placeholderUnknown),
		AnticipatedDelivery: defaultStr(raw.AnticipatedDelivery, placeholderUnknown),
		MerchantRating:      n.parseRating(raw.MerchantRating, &coerced),
		MerchantReviews:     n.parseCount(raw.MerchantReviews, &coerced),
		DateGathered:        models.DateOnly(day),
	}, coerced
}

// parseMoney strips currency formatting and parses a non-negative
// decimal. A value that still fails to parse becomes 0.0 and counts as a
// coercion; an absent value is simply 0.0.
func (n *Normalizer) parseMoney(raw string, coerced *int) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	v, err := strconv.ParseFloat(moneyCleaner.Replace(s), 64)
	if err != nil || v < 0 {
		n.logger.Debug("[normalizer] Coerced unparseable money value %q to 0", raw)
		*coerced++
		return 0
	}
	return v
}

// parseRating parses a possibly comma-formatted numeric rating.
func (n *Normalizer) parseRating(raw string, coerced *int) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		n.logger.Debug("[normalizer] Coerced unparseable rating %q to 0", raw)
		*coerced++
		return 0
	}
	return v
}

// parseCount parses a possibly comma-formatted integer count.
func (n *Normalizer) parseCount(raw string, coerced *int) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || v < 0 {
		n.logger.Debug("[normalizer] Coerced unparseable count %q to 0", raw)
		*coerced++
		return 0
	}
	return v
}

func defaultStr(s, fallback string) string {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		return trimmed
	}
	return fallback
}
