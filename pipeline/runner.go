package pipeline

import (
	"context"
	"sync"
	"time"

	"chrono-scraper/config"
	"chrono-scraper/models"
	"chrono-scraper/scraper"
	"chrono-scraper/services"
	"chrono-scraper/storage"
	"chrono-scraper/utils"
)

// Archiver receives each category's raw records before normalization.
// Archive failures are logged, never fatal.
type Archiver interface {
	WriteRaw(category string, records []*models.RawRecord) error
}

// Runner drives one bounded batch run: every configured category is
// fetched, normalized, and reconciled, with concurrency capped and a
// mandatory politeness interval between category fetch starts. A run
// always terminates with a summary, whatever individual categories did.
type Runner struct {
	cfg        *config.Config
	logger     *utils.Logger
	source     scraper.Source
	store      storage.PriceStore
	normalizer *services.Normalizer
	reconciler *services.Reconciler
	archive    Archiver
}

// New creates a Runner. archive may be nil to disable the raw feed
// archive.
func New(cfg *config.Config, logger *utils.Logger, source scraper.Source,
	store storage.PriceStore, mode services.Mode, archive Archiver) *Runner {
	return &Runner{
		cfg:        cfg,
		logger:     logger,
		source:     source,
		store:      store,
		normalizer: services.NewNormalizer(logger),
		reconciler: services.NewReconciler(store, mode, logger),
		archive:    archive,
	}
}

// Run executes the pipeline over all configured categories and returns
// the run summary. Category failures are recorded, not propagated; ctx
// cancellation stops the run between listings without corrupting rows
// already committed.
func (r *Runner) Run(ctx context.Context) *models.RunSummary {
	start := time.Now()
	summary := &models.RunSummary{
		Day:       models.DateOnly(start),
		StartedAt: start,
	}

	r.logger.Info("Run starting — %d categories | limit: %d | concurrency: %d | delay: %v | mode: %s",
		len(r.cfg.Categories), r.cfg.FetchLimit, r.cfg.MaxConcurrency,
		r.cfg.CategoryDelay(), r.cfg.ReconcileMode)

	pool := utils.NewWorkerPool(r.cfg.MaxConcurrency, r.cfg.CategoryDelay())
	var mu sync.Mutex

	for _, cat := range r.cfg.Categories {
		category := cat
		pool.Submit(func() {
			res := r.processCategory(ctx, category, summary.Day)

			mu.Lock()
			summary.Categories = append(summary.Categories, res)
			mu.Unlock()
		})
	}
	pool.Wait()

	for _, c := range summary.Categories {
		summary.Processed += c.Fetched
		summary.DetailRows += c.DetailRows
		summary.Inserted += c.Inserted
		summary.Updated += c.Updated
		summary.Unchanged += c.Unchanged
		summary.Excluded += c.Excluded
		summary.FailedWrites += c.FailedWrites
		summary.CoercedFields += c.CoercedFields
	}
	summary.Elapsed = time.Since(start)

	return summary
}

// processCategory fetches, normalizes, and reconciles one category. The
// basic and detail fetches run concurrently with each other; any fetch
// error empties that side's contribution and is recorded on the result.
func (r *Runner) processCategory(ctx context.Context, category string, day time.Time) *models.CategoryResult {
	res := &models.CategoryResult{Category: category}
	catStart := time.Now()

	r.logger.Info("[%s] Fetching up to %d listings", category, r.cfg.FetchLimit)

	var (
		basic   []*models.RawRecord
		details []*models.RawDetailRecord
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		basic, err = r.source.Search(ctx, category, r.cfg.FetchLimit)
		if err != nil {
			res.FetchErr = err
		}
	}()

	if r.cfg.WithDetails {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			details, err = r.source.SearchDetail(ctx, category, r.cfg.FetchLimit)
			if err != nil {
				res.DetailFetchErr = err
			}
		}()
	}
	wg.Wait()

	if res.FetchErr != nil {
		r.logger.Error("[%s] Fetch failed: %v", category, res.FetchErr)
		basic = nil
	}
	if res.DetailFetchErr != nil {
		r.logger.Error("[%s] Detail fetch failed: %v", category, res.DetailFetchErr)
		details = nil
	}

	if r.archive != nil && len(basic) > 0 {
		if err := r.archive.WriteRaw(category, basic); err != nil {
			r.logger.Warn("[%s] Raw archive write failed: %v", category, err)
		}
	}

	res.Fetched = len(basic)
	seen := utils.NewIDSet()

	for _, raw := range basic {
		if ctx.Err() != nil {
			r.logger.Warn("[%s] Run cancelled — stopping category early", category)
			break
		}

		snap, coerced := r.normalizer.Normalize(raw, category, day)
		res.CoercedFields += coerced

		if !seen.Add(snap.ListingID) {
			continue
		}

		decision, err := r.reconciler.Reconcile(ctx, snap)
		if err != nil {
			res.FailedWrites++
			r.logger.Error("[%s] Persist failed for listing %s: %v", category, snap.ListingID, err)
			continue
		}

		switch decision {
		case services.DecisionInserted:
			res.Inserted++
		case services.DecisionUpdated:
			res.Updated++
		case services.DecisionUnchanged:
			res.Unchanged++
		case services.DecisionExcluded:
			res.Excluded++
		}
	}

	for _, raw := range details {
		if ctx.Err() != nil {
			break
		}

		detail, coerced := r.normalizer.NormalizeDetail(raw, day)
		res.CoercedFields += coerced

		if err := r.store.InsertDetail(ctx, detail); err != nil {
			res.FailedWrites++
			r.logger.Error("[%s] Detail persist failed for listing %s: %v", category, detail.ListingID, err)
			continue
		}
		res.DetailRows++
	}

	res.Elapsed = time.Since(catStart)
	r.logger.Info("[%s] Done in %v — fetched: %d | inserted: %d | updated: %d | unchanged: %d | excluded: %d | failed: %d",
		category, res.Elapsed.Round(time.Millisecond), res.Fetched,
		res.Inserted, res.Updated, res.Unchanged, res.Excluded, res.FailedWrites)

	return res
}
