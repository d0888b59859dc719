package scraper

import (
	"log"

	"shelfwatch/models"
)

// Crawler drives the fetch → extract → paginate loop over a catalog. Pages
// are fetched one at a time; the catalog site sets the pace.
type Crawler struct {
	backend   FetchBackend
	extractor *Extractor
	maxPages  int
}

// NewCrawler creates a crawl controller. maxPages <= 0 means no page cap.
func NewCrawler(backend FetchBackend, extractor *Extractor, maxPages int) *Crawler {
	return &Crawler{
		backend:   backend,
		extractor: extractor,
		maxPages:  maxPages,
	}
}

// CrawlResult carries whatever a run accumulated plus per-run counters.
// Products gathered before a failure are kept: partial results are valid
// output, not an error.
type CrawlResult struct {
	Products []models.Product
	Pages    int
	Skipped  int
	Failed   bool
}

// Run crawls from startURL until the catalog runs out of pages, a page
// yields nothing usable, or a fetch fails. Duplicate links are suppressed
// within this single run, so a repeated page cannot double-report products.
func (c *Crawler) Run(startURL string) *CrawlResult {
	result := &CrawlResult{}
	seen := make(map[string]bool)
	pageURL := startURL

	for page := 1; c.maxPages <= 0 || page <= c.maxPages; page++ {
		log.Printf("Scraping page %d: %s", page, pageURL)

		content, err := c.backend.Fetch(pageURL)
		if err != nil {
			log.Printf("Failed to load page %d: %v", page, err)
			result.Failed = true
			break
		}

		products, skipped, err := c.extractor.ExtractProducts(content)
		if err != nil {
			log.Printf("Failed to parse page %d: %v", page, err)
			result.Failed = true
			break
		}

		result.Pages++
		result.Skipped += skipped

		if len(products) == 0 {
			log.Printf("No products found on page %d, stopping", page)
			break
		}

		fresh := 0
		for _, product := range products {
			if seen[product.Link] {
				continue
			}
			seen[product.Link] = true
			result.Products = append(result.Products, product)
			fresh++
		}
		log.Printf("Found %d products on page %d (%d new)", len(products), page, fresh)

		next, err := c.extractor.NextPageURL(content, pageURL)
		if err != nil {
			log.Printf("Stopping crawl on page %d: %v", page, err)
			result.Failed = true
			break
		}
		if next == "" {
			log.Println("No next page link found, stopping")
			break
		}
		pageURL = next
	}

	return result
}
