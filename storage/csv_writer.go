package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chrono-scraper/models"
)

// CSVWriter archives the raw (pre-normalization) records of a run to a
// CSV file. It is safe for concurrent use; category workers append their
// batches as they finish.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created
// automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"category", "listing_id", "manufacturer", "title", "price",
		"shipping_price", "certification_status", "condition", "description",
		"url", "merchant_name", "location", "badge", "image_urls", "fetched_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends one category's raw records to the archive.
func (c *CSVWriter) WriteRaw(category string, records []*models.RawRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			category,
			r.ID,
			r.Manufacturer,
			r.Title,
			r.Price,
			r.ShippingPrice,
			r.CertificationStatus,
			r.Condition,
			r.Description,
			r.URL,
			r.MerchantName,
			r.Location,
			r.Badge,
			strings.Join(r.ImageURLs, " "),
			r.FetchedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
