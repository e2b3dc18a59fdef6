package services

import (
	"testing"
	"time"

	"chrono-scraper/models"
	"chrono-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func TestNormalizeScenario(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	day := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)

	raw := &models.RawRecord{
		ID:            "123",
		Manufacturer:  "Omega",
		Title:         "Speedmaster",
		Price:         "$4,200.00",
		ShippingPrice: "$25.00",
	}

	snap, coerced := n.Normalize(raw, "Omega", day)

	if coerced != 0 {
		t.Errorf("coerced fields: got %d, want 0", coerced)
	}
	if snap.ListingID != "123" {
		t.Errorf("ListingID: got %q, want %q", snap.ListingID, "123")
	}
	if snap.Category != "Omega" {
		t.Errorf("Category: got %q, want %q", snap.Category, "Omega")
	}
	if snap.Brand != "Omega" {
		t.Errorf("Brand: got %q, want %q", snap.Brand, "Omega")
	}
	if snap.Model != "Speedmaster" {
		t.Errorf("Model: got %q, want %q", snap.Model, "Speedmaster")
	}
	if snap.Price != 4200.00 {
		t.Errorf("Price: got %.2f, want 4200.00", snap.Price)
	}
	if snap.ShippingPrice != 25.00 {
		t.Errorf("ShippingPrice: got %.2f, want 25.00", snap.ShippingPrice)
	}
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !snap.DateGathered.Equal(want) {
		t.Errorf("DateGathered: got %v, want %v", snap.DateGathered, want)
	}
}

func TestParseMoney(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	tests := []struct {
		raw         string
		want        float64
		wantCoerced int
	}{
		{"$4,200.00", 4200.00, 0},
		{"$25.00", 25.00, 0},
		{"€1,234.56", 1234.56, 0},
		{"120", 120, 0},
		{"", 0, 0},
		{"N/A", 0, 1},
		{"Price on request", 0, 1},
		{"-50", 0, 1},
	}

	for _, tt := range tests {
		coerced := 0
		got := n.parseMoney(tt.raw, &coerced)
		if got != tt.want {
			t.Errorf("parseMoney(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
		if coerced != tt.wantCoerced {
			t.Errorf("parseMoney(%q) coerced = %d; want %d", tt.raw, coerced, tt.wantCoerced)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	snap, _ := n.Normalize(&models.RawRecord{ID: "9"}, "Rolex", time.Now())

	if snap.Brand != "Unknown" {
		t.Errorf("Brand default: got %q, want Unknown", snap.Brand)
	}
	if snap.Model != "Unknown" {
		t.Errorf("Model default: got %q, want Unknown", snap.Model)
	}
	if snap.Description != "No description available" {
		t.Errorf("Description default: got %q", snap.Description)
	}
	if snap.Currency != "USD" {
		t.Errorf("Currency default: got %q, want USD", snap.Currency)
	}
	if snap.ImageURL != "" {
		t.Errorf("ImageURL default: got %q, want empty", snap.ImageURL)
	}
	if snap.Price != 0 {
		t.Errorf("Price default: got %.2f, want 0", snap.Price)
	}
}

func TestNormalizeMissingIDBecomesZero(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	snap, _ := n.Normalize(&models.RawRecord{Title: "Submariner"}, "Rolex", time.Now())
	if snap.ListingID != "0" {
		t.Errorf("ListingID: got %q, want %q", snap.ListingID, "0")
	}
}

func TestNormalizeTakesFirstImage(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	raw := &models.RawRecord{
		ID:        "42",
		ImageURLs: []string{"https://img.example.com/a.jpg", "https://img.example.com/b.jpg"},
	}
	snap, _ := n.Normalize(raw, "Seiko", time.Now())

	if snap.ImageURL != "https://img.example.com/a.jpg" {
		t.Errorf("ImageURL: got %q, want first candidate", snap.ImageURL)
	}
}

func TestNormalizeDetail(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	raw := &models.RawDetailRecord{
		ID:               "123",
		YearOfProduction: "1998",
		MerchantRating:   "4.8",
		MerchantReviews:  "1,234",
	}
	detail, coerced := n.NormalizeDetail(raw, day)

	if coerced != 0 {
		t.Errorf("coerced fields: got %d, want 0", coerced)
	}
	if detail.ProductionYear != "1998" {
		t.Errorf("ProductionYear: got %q", detail.ProductionYear)
	}
	if detail.MerchantRating != 4.8 {
		t.Errorf("MerchantRating: got %.2f, want 4.8", detail.MerchantRating)
	}
	if detail.MerchantReviews != 1234 {
		t.Errorf("MerchantReviews: got %d, want 1234", detail.MerchantReviews)
	}
	if detail.DeliveryScope != "Unknown" {
		t.Errorf("DeliveryScope default: got %q, want Unknown", detail.DeliveryScope)
	}
}

func TestNormalizeDetailCoercion(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	raw := &models.RawDetailRecord{
		ID:              "123",
		MerchantRating:  "N/A",
		MerchantReviews: "many",
	}
	detail, coerced := n.NormalizeDetail(raw, time.Now())

	if coerced != 2 {
		t.Errorf("coerced fields: got %d, want 2", coerced)
	}
	if detail.MerchantRating != 0 {
		t.Errorf("MerchantRating: got %.2f, want 0", detail.MerchantRating)
	}
	if detail.MerchantReviews != 0 {
		t.Errorf("MerchantReviews: got %d, want 0", detail.MerchantReviews)
	}
}
