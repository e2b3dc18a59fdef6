package chronoapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"chrono-scraper/config"
	"chrono-scraper/models"
	"chrono-scraper/utils"
)

// Client fetches listings from a JSON search endpoint in front of the
// catalog source. Used when a mirror/API gateway is available instead of
// scraping the site directly.
type Client struct {
	logger *utils.Logger
	http   *resty.Client
}

// New creates a Client against cfg.SourceBaseURL.
func New(cfg *config.Config, logger *utils.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.SourceBaseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{logger: logger, http: client}
}

type listingPayload struct {
	ID                  string   `json:"id"`
	Manufacturer        string   `json:"manufacturer"`
	Title               string   `json:"title"`
	Price               string   `json:"price"`
	ShippingPrice       string   `json:"shipping_price"`
	CertificationStatus string   `json:"certification_status"`
	Condition           string   `json:"condition"`
	Description         string   `json:"description"`
	URL                 string   `json:"url"`
	MerchantName        string   `json:"merchant_name"`
	Location            string   `json:"location"`
	Badge               string   `json:"badge"`
	ImageURLs           []string `json:"image_urls"`
}

type detailPayload struct {
	ID                  string `json:"id"`
	YearOfProduction    string `json:"year_of_production"`
	ScopeOfDelivery     string `json:"scope_of_delivery"`
	Availability        string `json:"availability"`
	CaseDiameter        string `json:"case_diameter"`
	BraceletColor       string `json:"bracelet_color"`
	AnticipatedDelivery string `json:"anticipated_delivery"`
	MerchantRating      string `json:"merchant_rating"`
	MerchantReviews     string `json:"merchant_reviews"`
}

type searchResponse struct {
	Listings []listingPayload `json:"listings"`
}

type detailResponse struct {
	Listings []detailPayload `json:"listings"`
}

// Search requests up to limit basic listings for one category.
func (c *Client) Search(ctx context.Context, category string, limit int) ([]*models.RawRecord, error) {
	var out searchResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    category,
			"pageSize": strconv.Itoa(limit),
		}).
		SetResult(&out).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("chronoapi: search %q: %w", category, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chronoapi: search %q: unexpected status %s", category, resp.Status())
	}

	now := time.Now()
	records := make([]*models.RawRecord, 0, len(out.Listings))
	for _, l := range out.Listings {
		records = append(records, &models.RawRecord{
			ID:                  l.ID,
			Manufacturer:        l.Manufacturer,
			Title:               l.Title,
			Price:               l.Price,
			ShippingPrice:       l.ShippingPrice,
			CertificationStatus: l.CertificationStatus,
			Condition:           l.Condition,
			Description:         l.Description,
			URL:                 l.URL,
			MerchantName:        l.MerchantName,
			Location:            l.Location,
			Badge:               l.Badge,
			ImageURLs:           l.ImageURLs,
			FetchedAt:           now,
		})
	}

	c.logger.Debug("[chronoapi] %s — %d listings", category, len(records))
	return records, nil
}

// SearchDetail requests up to limit detail-enriched listings for one
// category.
func (c *Client) SearchDetail(ctx context.Context, category string, limit int) ([]*models.RawDetailRecord, error) {
	var out detailResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    category,
			"pageSize": strconv.Itoa(limit),
		}).
		SetResult(&out).
		Get("/search/detail")
	if err != nil {
		return nil, fmt.Errorf("chronoapi: search detail %q: %w", category, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chronoapi: search detail %q: unexpected status %s", category, resp.Status())
	}

	records := make([]*models.RawDetailRecord, 0, len(out.Listings))
	for _, l := range out.Listings {
		records = append(records, &models.RawDetailRecord{
			ID:                  l.ID,
			YearOfProduction:    l.YearOfProduction,
			ScopeOfDelivery:     l.ScopeOfDelivery,
			Availability:        l.Availability,
			CaseDiameter:        l.CaseDiameter,
			BraceletColor:       l.BraceletColor,
			AnticipatedDelivery: l.AnticipatedDelivery,
			MerchantRating:      l.MerchantRating,
			MerchantReviews:     l.MerchantReviews,
		})
	}

	c.logger.Debug("[chronoapi] %s — %d detail listings", category, len(records))
	return records, nil
}
