package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"chrono-scraper/models"
	"chrono-scraper/utils"
)

// InsightService computes the post-run market report over the day's
// persisted snapshots. It is a read-only consumer of the price table.
type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(snaps []*models.WatchSnapshot) *models.MarketReport {
	report := &models.MarketReport{
		ListingsByBrand:    make(map[string]int),
		ListingsByLocation: make(map[string]int),
	}

	if len(snaps) == 0 {
		return report
	}

	report.TotalListings = len(snaps)

	var priced []*models.WatchSnapshot
	for _, w := range snaps {
		report.ListingsByBrand[w.Brand]++
		if w.Location != "" && w.Location != "Unknown" {
			report.ListingsByLocation[w.Location]++
		}
		if w.Price > 0 {
			priced = append(priced, w)
		}
	}

	if len(priced) > 0 {
		report.MinPrice = priced[0].Price
		report.MaxPrice = priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, w := range priced {
			total += w.Price
			if w.Price < report.MinPrice {
				report.MinPrice = w.Price
			}
			if w.Price > report.MaxPrice {
				report.MaxPrice = w.Price
				report.MostExpensive = w
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	return report
}

// Print logs a human-readable rendering of the report.
func (s *InsightService) Print(r *models.MarketReport) {
	s.logger.Info("=== Market report ===")
	s.logger.Info("Listings stored today: %d", r.TotalListings)

	if r.TotalListings == 0 {
		return
	}

	s.logger.Info("Price — avg: $%.2f | min: $%.2f | max: $%.2f",
		r.AveragePrice, r.MinPrice, r.MaxPrice)

	if r.MostExpensive != nil {
		s.logger.Info("Most expensive: %s — $%.2f (%s)",
			r.MostExpensive.Model, r.MostExpensive.Price, r.MostExpensive.URL)
	}

	type brandCount struct {
		brand string
		n     int
	}
	brands := make([]brandCount, 0, len(r.ListingsByBrand))
	for b, n := range r.ListingsByBrand {
		brands = append(brands, brandCount{b, n})
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].n > brands[j].n })

	var parts []string
	for _, bc := range brands {
		parts = append(parts, fmt.Sprintf("%s: %d", bc.brand, bc.n))
	}
	s.logger.Info("By brand — %s", strings.Join(parts, " | "))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
