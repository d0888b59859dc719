package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shelfwatch/models"
	"shelfwatch/repository"
	"shelfwatch/scheduler"
	"shelfwatch/scraper"
	"shelfwatch/services"

	cache "github.com/go-pkgz/expirable-cache"
	"github.com/gorilla/mux"
)

const brandCacheKey = "brands"

type Handlers struct {
	repo       *repository.CatalogRepository
	reconciler *services.Reconciler
	crawler    *scraper.Crawler
	snapshots  *scraper.SnapshotWriter
	refresher  *scheduler.PriceRefresher
	brandCache cache.Cache
}

func NewHandlers(repo *repository.CatalogRepository, reconciler *services.Reconciler,
	crawler *scraper.Crawler, snapshots *scraper.SnapshotWriter,
	refresher *scheduler.PriceRefresher) *Handlers {

	brandCache, err := cache.NewCache(cache.TTL(time.Hour), cache.MaxKeys(10))
	if err != nil {
		log.Printf("Failed to create brand cache: %v", err)
	}

	return &Handlers{
		repo:       repo,
		reconciler: reconciler,
		crawler:    crawler,
		snapshots:  snapshots,
		refresher:  refresher,
		brandCache: brandCache,
	}
}

// ScrapeCatalog crawls a catalog listing from the submitted URL, writes the
// snapshot artifact and reconciles the result into the store.
func (h *Handlers) ScrapeCatalog(w http.ResponseWriter, r *http.Request) {
	var req models.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, "A valid url is required")
		return
	}

	result := h.crawler.Run(req.URL)

	if _, err := h.snapshots.Write(result.Products); err != nil {
		// The snapshot is an export artifact; losing it does not invalidate the crawl.
		log.Printf("Failed to write snapshot: %v", err)
	}

	recReport, err := h.reconciler.ReconcileBatch(result.Products)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Scraped products could not be saved")
		return
	}

	if recReport.Created > 0 {
		h.invalidateBrands()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"partial": result.Failed,
		"report": models.ScrapeReport{
			Pages:     result.Pages,
			Scraped:   len(result.Products),
			Skipped:   result.Skipped + recReport.Skipped,
			Created:   recReport.Created,
			Updated:   recReport.Updated,
			Unchanged: recReport.Unchanged,
		},
	})
}

// GetProducts returns a page of catalog entries with optional title search
// and brand filter.
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 10)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	search := r.URL.Query().Get("search")
	brand := r.URL.Query().Get("brand")

	entries, total, err := h.repo.Search(search, brand, perPage, (page-1)*perPage)
	if err != nil {
		log.Printf("Failed to search products: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": entries,
		"page":     page,
		"per_page": perPage,
		"total":    total,
	})
}

// GetProductDetails returns one catalog entry.
func (h *Handlers) GetProductDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	entry, err := h.repo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// GetPriceHistory returns the audit trail for one entry, newest first.
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if _, err := h.repo.GetByID(id); err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	history, err := h.repo.GetHistory(id, queryInt(r, "limit", 50))
	if err != nil {
		log.Printf("Failed to get price history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entry_id": id,
		"history":  history,
	})
}

// GetBrands returns the distinct brand list, memoized for an hour.
func (h *Handlers) GetBrands(w http.ResponseWriter, r *http.Request) {
	if h.brandCache != nil {
		if cached, ok := h.brandCache.Get(brandCacheKey); ok {
			writeJSON(w, http.StatusOK, map[string]interface{}{"brands": cached})
			return
		}
	}

	brands, err := h.repo.ListBrands()
	if err != nil {
		log.Printf("Failed to list brands: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get brands")
		return
	}

	if h.brandCache != nil {
		h.brandCache.Set(brandCacheKey, brands, 0)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"brands": brands})
}

// RefreshPrices triggers a price refresh run outside the schedule.
func (h *Handlers) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	report, err := h.refresher.RunPriceRefresh()
	if err != nil {
		if err == scheduler.ErrRefreshInProgress {
			writeError(w, http.StatusConflict, "A price refresh is already running")
			return
		}
		log.Printf("Manual price refresh failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Price refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) invalidateBrands() {
	if h.brandCache != nil {
		h.brandCache.Invalidate(brandCacheKey)
	}
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
