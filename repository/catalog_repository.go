package repository

import (
	"database/sql"
	"fmt"
	"time"

	"shelfwatch/database"
	"shelfwatch/models"
)

type CatalogRepository struct{}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{}
}

// GetByLink returns the catalog entry for a canonical link, or nil when the
// link has never been observed.
func (r *CatalogRepository) GetByLink(link string) (*models.CatalogEntry, error) {
	query := `
		SELECT id, title, current_price, link, image, brand, product_code, last_updated
		FROM catalog_entries
		WHERE link = $1
	`

	var entry models.CatalogEntry
	err := database.DB.QueryRow(query, link).Scan(
		&entry.ID, &entry.Title, &entry.CurrentPrice, &entry.Link,
		&entry.Image, &entry.Brand, &entry.ProductCode, &entry.LastUpdated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entry by link: %v", err)
	}

	return &entry, nil
}

// GetByID returns a catalog entry by its ID.
func (r *CatalogRepository) GetByID(id int) (*models.CatalogEntry, error) {
	query := `
		SELECT id, title, current_price, link, image, brand, product_code, last_updated
		FROM catalog_entries
		WHERE id = $1
	`

	var entry models.CatalogEntry
	err := database.DB.QueryRow(query, id).Scan(
		&entry.ID, &entry.Title, &entry.CurrentPrice, &entry.Link,
		&entry.Image, &entry.Brand, &entry.ProductCode, &entry.LastUpdated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("entry not found")
		}
		return nil, fmt.Errorf("failed to get entry: %v", err)
	}

	return &entry, nil
}

// UpsertBatch applies a reconciled batch in a single transaction. Entries
// with a zero ID are inserted, the rest get their price and last_updated
// rewritten; history samples are appended as-is. Either the whole batch
// lands or none of it does.
func (r *CatalogRepository) UpsertBatch(entries []models.CatalogEntry, samples []models.PriceHistorySample) error {
	if len(entries) == 0 && len(samples) == 0 {
		return nil
	}

	tx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO catalog_entries (title, current_price, link, image, brand, product_code, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	updateQuery := `
		UPDATE catalog_entries
		SET current_price = $2, last_updated = $3
		WHERE id = $1
	`

	for _, entry := range entries {
		if entry.ID == 0 {
			_, err = tx.Exec(insertQuery, entry.Title, entry.CurrentPrice, entry.Link,
				entry.Image, entry.Brand, entry.ProductCode, entry.LastUpdated)
		} else {
			_, err = tx.Exec(updateQuery, entry.ID, entry.CurrentPrice, entry.LastUpdated)
		}
		if err != nil {
			return fmt.Errorf("failed to upsert entry %s: %v", entry.Link, err)
		}
	}

	sampleQuery := `
		INSERT INTO price_history (entry_id, price, recorded_at)
		VALUES ($1, $2, $3)
	`
	for _, sample := range samples {
		if _, err := tx.Exec(sampleQuery, sample.EntryID, sample.Price, sample.RecordedAt); err != nil {
			return fmt.Errorf("failed to add price history: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %v", err)
	}

	return nil
}

// ListAll returns every catalog entry, for the refresh job.
func (r *CatalogRepository) ListAll() ([]models.CatalogEntry, error) {
	query := `
		SELECT id, title, current_price, link, image, brand, product_code, last_updated
		FROM catalog_entries
		ORDER BY id
	`

	rows, err := database.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %v", err)
	}
	defer rows.Close()

	var entries []models.CatalogEntry
	for rows.Next() {
		var entry models.CatalogEntry
		err := rows.Scan(
			&entry.ID, &entry.Title, &entry.CurrentPrice, &entry.Link,
			&entry.Image, &entry.Brand, &entry.ProductCode, &entry.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %v", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteOlderThan removes entries whose last_updated is before the threshold
// and returns the number of deleted rows. History rows go with their entry
// via the cascading foreign key.
func (r *CatalogRepository) DeleteOlderThan(threshold time.Time) (int64, error) {
	result, err := database.DB.Exec(`DELETE FROM catalog_entries WHERE last_updated < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale entries: %v", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted entries: %v", err)
	}

	return count, nil
}

// GetHistory returns price history samples for an entry, newest first.
func (r *CatalogRepository) GetHistory(entryID, limit int) ([]models.PriceHistorySample, error) {
	if limit <= 0 {
		limit = 50 // default limit
	}

	query := `
		SELECT id, entry_id, price, recorded_at
		FROM price_history
		WHERE entry_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := database.DB.Query(query, entryID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %v", err)
	}
	defer rows.Close()

	var history []models.PriceHistorySample
	for rows.Next() {
		var sample models.PriceHistorySample
		if err := rows.Scan(&sample.ID, &sample.EntryID, &sample.Price, &sample.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %v", err)
		}
		history = append(history, sample)
	}

	return history, rows.Err()
}

// Search returns a page of catalog entries filtered by title substring and
// exact brand, plus the total match count for pagination.
func (r *CatalogRepository) Search(search, brand string, limit, offset int) ([]models.CatalogEntry, int, error) {
	if limit <= 0 {
		limit = 10
	}

	where := `WHERE ($1 = '' OR title ILIKE '%' || $1 || '%') AND ($2 = '' OR brand = $2)`

	var total int
	countQuery := `SELECT COUNT(*) FROM catalog_entries ` + where
	if err := database.DB.QueryRow(countQuery, search, brand).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count entries: %v", err)
	}

	query := `
		SELECT id, title, current_price, link, image, brand, product_code, last_updated
		FROM catalog_entries ` + where + `
		ORDER BY last_updated DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := database.DB.Query(query, search, brand, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search entries: %v", err)
	}
	defer rows.Close()

	var entries []models.CatalogEntry
	for rows.Next() {
		var entry models.CatalogEntry
		err := rows.Scan(
			&entry.ID, &entry.Title, &entry.CurrentPrice, &entry.Link,
			&entry.Image, &entry.Brand, &entry.ProductCode, &entry.LastUpdated,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan entry: %v", err)
		}
		entries = append(entries, entry)
	}

	return entries, total, rows.Err()
}

// ListBrands returns the distinct non-empty brands in the catalog.
func (r *CatalogRepository) ListBrands() ([]string, error) {
	query := `SELECT DISTINCT brand FROM catalog_entries WHERE brand <> '' ORDER BY brand`

	rows, err := database.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %v", err)
	}
	defer rows.Close()

	var brands []string
	for rows.Next() {
		var brand string
		if err := rows.Scan(&brand); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %v", err)
		}
		brands = append(brands, brand)
	}

	return brands, rows.Err()
}
