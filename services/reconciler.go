package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"shelfwatch/models"
)

// CatalogStore is the persistence surface the reconciler and the scheduled
// jobs work against.
type CatalogStore interface {
	GetByLink(link string) (*models.CatalogEntry, error)
	UpsertBatch(entries []models.CatalogEntry, samples []models.PriceHistorySample) error
	ListAll() ([]models.CatalogEntry, error)
	DeleteOlderThan(threshold time.Time) (int64, error)
}

// Reconciler applies batches of observed products against the persisted
// catalog. The price-history invariant lives here: a sample is appended
// exactly when an entry's current price changes, and it records the price
// that was in effect immediately before the update.
//
// Batches are serialized: the lookup that decides between create, update and
// no-op must see the previous batch committed, or two racing batches would
// both record the same superseded price.
type Reconciler struct {
	store CatalogStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store CatalogStore) *Reconciler {
	return &Reconciler{
		store: store,
		now:   time.Now,
	}
}

// ReconcileReport counts what one batch did to the catalog.
type ReconcileReport struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// ReconcileBatch upserts a batch of observed products as one atomic unit.
// Invalid products and duplicate links within the batch are skipped, not
// fatal. When the commit fails nothing is applied and the error is returned.
func (r *Reconciler) ReconcileBatch(products []models.Product) (*ReconcileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := &ReconcileReport{}
	now := r.now()

	var entries []models.CatalogEntry
	var samples []models.PriceHistorySample
	seen := make(map[string]bool)

	for _, product := range products {
		if product.Link == "" || product.Price <= 0 {
			report.Skipped++
			log.Printf("Skipping invalid product %q (link %q)", product.Title, product.Link)
			continue
		}
		if seen[product.Link] {
			report.Skipped++
			continue
		}
		seen[product.Link] = true

		existing, err := r.store.GetByLink(product.Link)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %v", product.Link, err)
		}

		if existing == nil {
			entries = append(entries, models.CatalogEntry{
				Title:        product.Title,
				CurrentPrice: product.Price,
				Link:         product.Link,
				Image:        product.Image,
				Brand:        product.Brand,
				ProductCode:  product.ProductCode,
				LastUpdated:  now,
			})
			report.Created++
			continue
		}

		if existing.CurrentPrice == product.Price {
			report.Unchanged++
			continue
		}

		// The sample records the superseded price, never the new one.
		samples = append(samples, models.PriceHistorySample{
			EntryID:    existing.ID,
			Price:      existing.CurrentPrice,
			RecordedAt: now,
		})

		updated := *existing
		updated.CurrentPrice = product.Price
		updated.LastUpdated = now
		entries = append(entries, updated)
		report.Updated++
	}

	if err := r.store.UpsertBatch(entries, samples); err != nil {
		return nil, fmt.Errorf("batch not applied: %v", err)
	}

	log.Printf("Reconciled batch: %d created, %d updated, %d unchanged, %d skipped",
		report.Created, report.Updated, report.Unchanged, report.Skipped)
	return report, nil
}
