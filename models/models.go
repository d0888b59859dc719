package models

import (
	"fmt"
	"time"
)

// Defaults applied when a product card is missing optional fields.
const (
	DefaultTitle       = "Unknown"
	DefaultBrand       = "Unknown"
	DefaultProductCode = "-"
	PlaceholderImage   = "/static/images/no-image.jpg"
)

// Product is a single observation of a product, produced by the extractor
// during a crawl or by the refresh path. It is ephemeral: only valid
// products (non-empty link, positive price) make it past NewProduct.
type Product struct {
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	PrevPrice   *float64 `json:"prev_price,omitempty"`
	Link        string   `json:"link"`
	Image       string   `json:"image"`
	Brand       string   `json:"brand"`
	ProductCode string   `json:"product_code"`
}

// NewProduct builds a validated product observation. The link is the natural
// key, so it must be present; the price must have parsed to a positive value.
func NewProduct(title string, price float64, link, image, brand, productCode string) (Product, error) {
	if link == "" {
		return Product{}, fmt.Errorf("product %q has no link", title)
	}
	if price <= 0 {
		return Product{}, fmt.Errorf("product %q has invalid price %.2f", title, price)
	}
	if title == "" {
		title = DefaultTitle
	}
	if image == "" {
		image = PlaceholderImage
	}
	if brand == "" {
		brand = DefaultBrand
	}
	if productCode == "" {
		productCode = DefaultProductCode
	}
	return Product{
		Title:       title,
		Price:       price,
		Link:        link,
		Image:       image,
		Brand:       brand,
		ProductCode: productCode,
	}, nil
}

// WithPrevPrice returns a copy of the product carrying the previously
// observed price, used when the refresh path reports a change.
func (p Product) WithPrevPrice(prev float64) Product {
	p.PrevPrice = &prev
	return p
}

// CatalogEntry is the persisted record of a product, keyed by its canonical
// link. Created the first time a link is observed, mutated in place on every
// later observation with a different price.
type CatalogEntry struct {
	ID           int       `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	CurrentPrice float64   `json:"current_price" db:"current_price"`
	Link         string    `json:"link" db:"link"`
	Image        string    `json:"image" db:"image"`
	Brand        string    `json:"brand" db:"brand"`
	ProductCode  string    `json:"product_code" db:"product_code"`
	LastUpdated  time.Time `json:"last_updated" db:"last_updated"`
}

// PriceHistorySample is an append-only audit record. It stores the price
// that was in effect immediately before a catalog entry was updated, never
// the new value.
type PriceHistorySample struct {
	ID         int       `json:"id" db:"id"`
	EntryID    int       `json:"entry_id" db:"entry_id"`
	Price      float64   `json:"price" db:"price"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// ScrapeRequest is the body of POST /api/v1/scrape.
type ScrapeRequest struct {
	URL string `json:"url"`
}

// ScrapeReport summarizes one crawl-and-reconcile run.
type ScrapeReport struct {
	Pages     int `json:"pages"`
	Scraped   int `json:"scraped"`
	Skipped   int `json:"skipped"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// RefreshReport summarizes one scheduled or manual price refresh run.
type RefreshReport struct {
	Total     int `json:"total"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
}
