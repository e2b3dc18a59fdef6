package chrono

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"chrono-scraper/config"
	"chrono-scraper/models"
	"chrono-scraper/utils"
)

const (
	baseURL  = "https://www.chrono24.com"
	pageSize = 120
)

// Scraper fetches listings by driving a headless browser over the
// catalog's search result and listing pages. One Search or SearchDetail
// call owns its own browser allocator; categories never share a tab.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use browser Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// card mirrors the fields extracted from one search result tile.
type card struct {
	ID            string   `json:"id"`
	Manufacturer  string   `json:"manufacturer"`
	Title         string   `json:"title"`
	Price         string   `json:"price"`
	ShippingPrice string   `json:"shipping_price"`
	Certification string   `json:"certification"`
	Condition     string   `json:"condition"`
	Description   string   `json:"description"`
	URL           string   `json:"url"`
	MerchantName  string   `json:"merchant_name"`
	Location      string   `json:"location"`
	Badge         string   `json:"badge"`
	ImageURLs     []string `json:"image_urls"`
}

// Search pages through the category's search results until limit records
// are collected or the results run out.
func (s *Scraper) Search(ctx context.Context, category string, limit int) ([]*models.RawRecord, error) {
	allocCtx, cancel := s.newAllocator(ctx)
	defer cancel()

	cards, err := s.collectCards(allocCtx, category, limit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]*models.RawRecord, 0, len(cards))
	for _, c := range cards {
		records = append(records, &models.RawRecord{
			ID:                  c.ID,
			Manufacturer:        c.Manufacturer,
			Title:               c.Title,
			Price:               c.Price,
			ShippingPrice:       c.ShippingPrice,
			CertificationStatus: c.Certification,
			Condition:           c.Condition,
			Description:         c.Description,
			URL:                 c.URL,
			MerchantName:        c.MerchantName,
			Location:            c.Location,
			Badge:               c.Badge,
			ImageURLs:           c.ImageURLs,
			FetchedAt:           now,
		})
	}

	s.logger.Info("[chrono] %s — collected %d raw listings", category, len(records))
	return records, nil
}

// SearchDetail collects search cards and then visits each listing's own
// page for the detail attributes. A single broken listing page is skipped
// rather than failing the category.
func (s *Scraper) SearchDetail(ctx context.Context, category string, limit int) ([]*models.RawDetailRecord, error) {
	allocCtx, cancel := s.newAllocator(ctx)
	defer cancel()

	cards, err := s.collectCards(allocCtx, category, limit)
	if err != nil {
		return nil, err
	}

	records := make([]*models.RawDetailRecord, 0, len(cards))
	for _, c := range cards {
		if c.URL == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		detail, err := s.scrapeListingPage(allocCtx, c.URL, c.ID)
		if err != nil {
			s.logger.Warn("[chrono] Listing page failed for %s: %v", c.URL, err)
			continue
		}
		records = append(records, detail)
	}

	s.logger.Info("[chrono] %s — collected %d detail records", category, len(records))
	return records, nil
}

func (s *Scraper) collectCards(allocCtx context.Context, category string, limit int) ([]*card, error) {
	seen := utils.NewIDSet()
	var all []*card

	for page := 1; len(all) < limit; page++ {
		pageCards, err := s.scrapeSearchPage(allocCtx, category, page)
		if err != nil {
			return nil, fmt.Errorf("category %q page %d: %w", category, page, err)
		}
		if len(pageCards) == 0 {
			break
		}

		fresh := 0
		for _, c := range pageCards {
			if c.ID == "" || !seen.Add(c.ID) {
				continue
			}
			all = append(all, c)
			fresh++
			if len(all) >= limit {
				break
			}
		}
		s.logger.Debug("[chrono] %s page %d — %d cards (%d new)", category, page, len(pageCards), fresh)

		// The last page repeats when the site runs out of results.
		if fresh == 0 {
			break
		}
	}

	return all, nil
}

func searchURL(category string, page int) string {
	return fmt.Sprintf("%s/search/index.htm?dosearch=true&query=%s&pageSize=%d&showpage=%d",
		baseURL, url.QueryEscape(category), pageSize, page)
}

// scrapeSearchPage loads one search results page and extracts listing
// tiles.
func (s *Scraper) scrapeSearchPage(allocCtx context.Context, category string, page int) ([]*card, error) {
	var cards []*card

	err := s.retry.Do(allocCtx, fmt.Sprintf("search-page-%d", page), func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		var extracted []*card

		err := chromedp.Run(ctx,
			chromedp.Navigate(searchURL(category, page)),
			chromedp.Sleep(4*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];

					var tiles = document.querySelectorAll('[data-article-id]');
					if (tiles.length === 0) {
						tiles = document.querySelectorAll('.article-item-container, .article-item');
					}

					var seen = {};
					for (var i = 0; i < tiles.length; i++) {
						var tile = tiles[i];
						var id = tile.getAttribute('data-article-id') || '';

						var linkEl = tile.querySelector('a[href*=".htm"]') || tile.closest('a');
						var href = linkEl ? linkEl.href : '';
						if (!id && href) {
							var m = href.match(/--id(\d+)\.htm/);
							if (m) id = m[1];
						}
						if (!id || seen[id]) continue;
						seen[id] = true;

						var titleEl = tile.querySelector('.text-bold, .article-title, h3');
						var title = titleEl ? titleEl.innerText.trim() : '';

						var manufacturer = tile.getAttribute('data-manufacturer') || '';
						if (!manufacturer && title) {
							manufacturer = title.split(' ')[0];
						}

						var priceEl = tile.querySelector('.article-price, .text-lg.text-bold, [class*="price"]');
						var price = '';
						if (priceEl) {
							var pm = priceEl.innerText.match(/[\$€£¥]\s*[\d,.]+/);
							price = pm ? pm[0] : priceEl.innerText.trim().split('\n')[0];
						}

						var shipEl = tile.querySelector('.article-shipping-price, [class*="shipping"]');
						var shipping = '';
						if (shipEl) {
							var sm = shipEl.innerText.match(/[\$€£¥]\s*[\d,.]+/);
							shipping = sm ? sm[0] : '';
						}

						var certEl = tile.querySelector('.certified-badge, [class*="certified"]');
						var cert = certEl ? certEl.innerText.trim() : '';

						var descEl = tile.querySelector('.text-ellipsis, .article-description');
						var desc = descEl ? descEl.innerText.trim() : '';

						var merchEl = tile.querySelector('.article-dealer, [class*="merchant"], [class*="dealer"]');
						var merchant = merchEl ? merchEl.innerText.trim() : '';

						var locEl = tile.querySelector('[data-merchant-country], .article-location');
						var location = '';
						if (locEl) {
							location = locEl.getAttribute('data-merchant-country') || locEl.innerText.trim();
						}

						var badgeEl = tile.querySelector('.article-badge, .badge');
						var badge = badgeEl ? badgeEl.innerText.trim() : '';

						var images = [];
						var imgs = tile.querySelectorAll('img');
						for (var j = 0; j < imgs.length; j++) {
							var src = imgs[j].getAttribute('data-lazy-sweet-spot-master-src') ||
							          imgs[j].getAttribute('data-src') || imgs[j].src;
							if (src && src.indexOf('http') === 0) images.push(src);
						}

						results.push({
							id: id,
							manufacturer: manufacturer,
							title: title,
							price: price,
							shipping_price: shipping,
							certification: cert,
							condition: '',
							description: desc,
							url: href,
							merchant_name: merchant,
							location: location,
							badge: badge,
							image_urls: images
						});
					}

					return results;
				})()
			`, &extracted),
		)
		if err != nil {
			return fmt.Errorf("chromedp search extract: %w", err)
		}

		cards = extracted
		return nil
	})

	return cards, err
}

// scrapeListingPage visits a listing's own page and extracts the detail
// attributes from its specification table and seller box.
func (s *Scraper) scrapeListingPage(allocCtx context.Context, pageURL, id string) (*models.RawDetailRecord, error) {
	detail := &models.RawDetailRecord{ID: id}

	err := s.retry.Do(allocCtx, "listing-page", func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		type specData struct {
			YearOfProduction    string `json:"year_of_production"`
			ScopeOfDelivery     string `json:"scope_of_delivery"`
			Availability        string `json:"availability"`
			CaseDiameter        string `json:"case_diameter"`
			BraceletColor       string `json:"bracelet_color"`
			AnticipatedDelivery string `json:"anticipated_delivery"`
			MerchantRating      string `json:"merchant_rating"`
			MerchantReviews     string `json:"merchant_reviews"`
		}

		var spec specData

		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(3*time.Second),

			chromedp.Evaluate(`
				(function() {
					var spec = {};

					// Specification table: label cell followed by value cell.
					var rows = document.querySelectorAll('table tr, .specifications tr, dl');
					var labels = {
						'year of production': 'year_of_production',
						'scope of delivery':  'scope_of_delivery',
						'availability':       'availability',
						'case diameter':      'case_diameter',
						'bracelet color':     'bracelet_color',
						'anticipated delivery': 'anticipated_delivery'
					};
					for (var i = 0; i < rows.length; i++) {
						var cells = rows[i].querySelectorAll('td, th, dt, dd');
						if (cells.length < 2) continue;
						var label = cells[0].innerText.trim().toLowerCase().replace(/:$/, '');
						var key = labels[label];
						if (key && !spec[key]) {
							spec[key] = cells[1].innerText.trim();
						}
					}

					// Seller box: numeric rating plus review count.
					var ratingEl = document.querySelector('.rating-number, [class*="seller-rating"], .js-rating');
					if (ratingEl) {
						var rm = ratingEl.innerText.match(/[\d.,]+/);
						if (rm) spec.merchant_rating = rm[0];
					}
					var reviewsEl = document.querySelector('.rating-count, [class*="review-count"], .js-reviews');
					if (reviewsEl) {
						var vm = reviewsEl.innerText.match(/[\d,]+/);
						if (vm) spec.merchant_reviews = vm[0];
					}

					return spec;
				})()
			`, &spec),
		)
		if err != nil {
			return fmt.Errorf("chromedp detail extract: %w", err)
		}

		detail.YearOfProduction = spec.YearOfProduction
		detail.ScopeOfDelivery = spec.ScopeOfDelivery
		detail.Availability = spec.Availability
		detail.CaseDiameter = spec.CaseDiameter
		detail.BraceletColor = spec.BraceletColor
		detail.AnticipatedDelivery = spec.AnticipatedDelivery
		detail.MerchantRating = spec.MerchantRating
		detail.MerchantReviews = spec.MerchantReviews
		return nil
	})

	return detail, err
}

// newAllocator builds a silent headless browser allocator rooted at ctx.
func (s *Scraper) newAllocator(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin := s.findChromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	return silentCtx, func() {
		cancelSilent()
		cancelAlloc()
	}
}

// findChromeBinary locates a Chrome/Chromium binary.
func (s *Scraper) findChromeBinary() string {
	if s.cfg.ChromeBin != "" {
		return s.cfg.ChromeBin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
