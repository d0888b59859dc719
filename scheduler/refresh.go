package scheduler

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"shelfwatch/models"
	"shelfwatch/scraper"
	"shelfwatch/services"

	"github.com/robfig/cron/v3"
)

// ErrRefreshInProgress is returned when a refresh run is requested while a
// previous one has not finished yet.
var ErrRefreshInProgress = errors.New("price refresh already running")

// PriceRefresher re-checks the price of every catalog entry on a schedule.
// A bounded worker pool performs the fetches; a single aggregator consumes
// the results and is the only goroutine that talks to the store.
type PriceRefresher struct {
	store      services.CatalogStore
	reconciler *services.Reconciler
	backend    scraper.FetchBackend
	extractor  *scraper.Extractor

	workers       int
	retryAttempts int
	retryDelay    time.Duration
	schedule      string

	cron    *cron.Cron
	running atomic.Bool
}

// NewPriceRefresher creates the refresh job.
func NewPriceRefresher(store services.CatalogStore, reconciler *services.Reconciler,
	backend scraper.FetchBackend, extractor *scraper.Extractor,
	workers, retryAttempts int, retryDelay time.Duration, schedule string) *PriceRefresher {

	if workers < 1 {
		workers = 1
	}
	return &PriceRefresher{
		store:         store,
		reconciler:    reconciler,
		backend:       backend,
		extractor:     extractor,
		workers:       workers,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		schedule:      schedule,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start schedules the refresh and runs one refresh immediately.
func (pr *PriceRefresher) Start() {
	if _, err := pr.cron.AddFunc(pr.schedule, pr.runScheduled); err != nil {
		log.Printf("Failed to schedule price refresh: %v", err)
		return
	}

	go pr.runScheduled()

	pr.cron.Start()
	log.Printf("Price refresh scheduled (%s)", pr.schedule)
}

// Stop stops the schedule. A run already in flight finishes on its own.
func (pr *PriceRefresher) Stop() {
	if pr.cron != nil {
		pr.cron.Stop()
	}
}

func (pr *PriceRefresher) runScheduled() {
	report, err := pr.RunPriceRefresh()
	if err != nil {
		if errors.Is(err, ErrRefreshInProgress) {
			log.Println("Skipping scheduled refresh: previous run still in progress")
			return
		}
		log.Printf("Price refresh failed: %v", err)
		return
	}
	log.Printf("Price refresh done: %d checked, %d changed, %d unchanged, %d failed",
		report.Total, report.Changed, report.Unchanged, report.Failed)
}

// entryResult carries one worker's outcome back to the aggregator.
type entryResult struct {
	entry models.CatalogEntry
	price float64
	err   error
}

// RunPriceRefresh re-fetches every entry's price and commits the observed
// changes as one reconciled batch. A failing entry is reported and skipped;
// it never aborts the other workers. At most one run may be in flight, a
// concurrent call gets ErrRefreshInProgress.
func (pr *PriceRefresher) RunPriceRefresh() (*models.RefreshReport, error) {
	if !pr.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer pr.running.Store(false)

	entries, err := pr.store.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %v", err)
	}

	report := &models.RefreshReport{Total: len(entries)}
	if len(entries) == 0 {
		return report, nil
	}

	log.Printf("Refreshing prices for %d entries with %d workers", len(entries), pr.workers)

	jobs := make(chan models.CatalogEntry)
	results := make(chan entryResult)

	var wg sync.WaitGroup
	for i := 0; i < pr.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				price, err := pr.observePrice(entry.Link)
				results <- entryResult{entry: entry, price: price, err: err}
			}
		}()
	}

	go func() {
		for _, entry := range entries {
			jobs <- entry
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Single consumer: workers never touch the store themselves.
	var changed []models.Product
	for res := range results {
		if res.err != nil {
			report.Failed++
			log.Printf("Price check failed for %s: %v", res.entry.Link, res.err)
			continue
		}
		if res.price == res.entry.CurrentPrice {
			report.Unchanged++
			continue
		}

		product, err := models.NewProduct(res.entry.Title, res.price, res.entry.Link,
			res.entry.Image, res.entry.Brand, res.entry.ProductCode)
		if err != nil {
			report.Failed++
			log.Printf("Dropping observation for %s: %v", res.entry.Link, err)
			continue
		}
		changed = append(changed, product.WithPrevPrice(res.entry.CurrentPrice))
		report.Changed++
	}

	if len(changed) > 0 {
		recReport, err := pr.reconciler.ReconcileBatch(changed)
		if err != nil {
			return report, err
		}
		report.Created = recReport.Created
		report.Updated = recReport.Updated
	}

	return report, nil
}

// observePrice fetches one entry's page with retry and extracts its price.
func (pr *PriceRefresher) observePrice(link string) (float64, error) {
	content, err := scraper.WithRetry(pr.retryAttempts, pr.retryDelay, func() (string, error) {
		return pr.backend.Fetch(link)
	})
	if err != nil {
		return 0, err
	}
	return pr.extractor.ExtractPrice(content)
}
