package scraper

import (
	"context"
	"fmt"

	"chrono-scraper/config"
	"chrono-scraper/models"
	"chrono-scraper/scraper/chrono"
	"chrono-scraper/scraper/chronoapi"
	"chrono-scraper/utils"
)

// Source is the catalog search capability the pipeline consumes. Both
// calls return finite, materialized slices; errors are scoped to the one
// category being fetched.
type Source interface {
	Search(ctx context.Context, category string, limit int) ([]*models.RawRecord, error)
	SearchDetail(ctx context.Context, category string, limit int) ([]*models.RawDetailRecord, error)
}

// Adapter names accepted by SOURCE_ADAPTER.
const (
	AdapterBrowser = "browser"
	AdapterAPI     = "api"
)

// New builds the source adapter named by the configuration.
func New(cfg *config.Config, logger *utils.Logger) (Source, error) {
	switch cfg.SourceAdapter {
	case AdapterBrowser:
		return chrono.New(cfg, logger), nil
	case AdapterAPI:
		if cfg.SourceBaseURL == "" {
			return nil, fmt.Errorf("scraper: SOURCE_BASE_URL is required for the api adapter")
		}
		return chronoapi.New(cfg, logger), nil
	default:
		return nil, fmt.Errorf("scraper: unknown source adapter %q (want %s or %s)",
			cfg.SourceAdapter, AdapterBrowser, AdapterAPI)
	}
}
