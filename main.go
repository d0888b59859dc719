package main

import (
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"shelfwatch/config"
	"shelfwatch/database"
	"shelfwatch/handlers"
	"shelfwatch/middleware"
	"shelfwatch/repository"
	"shelfwatch/scheduler"
	"shelfwatch/scraper"
	"shelfwatch/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	repo := repository.NewCatalogRepository()
	reconciler := services.NewReconciler(repo)

	// Initialize fetching and extraction
	backend, err := scraper.NewFetchBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to create fetch backend: %v", err)
	}
	if closer, ok := backend.(io.Closer); ok {
		defer closer.Close()
	}

	extractor, err := scraper.NewExtractor(cfg.CatalogBaseURL)
	if err != nil {
		log.Fatalf("Failed to create extractor: %v", err)
	}

	crawler := scraper.NewCrawler(backend, extractor, cfg.CrawlMaxPages)
	snapshots := scraper.NewSnapshotWriter(cfg.SnapshotDir, cfg.SnapshotCompress)

	// Initialize and start the scheduled jobs
	refresher := scheduler.NewPriceRefresher(repo, reconciler, backend, extractor,
		cfg.RefreshWorkers, cfg.RefreshRetryAttempts, cfg.RefreshRetryDelay, cfg.RefreshSchedule)
	refresher.Start()
	defer refresher.Stop()

	retention := scheduler.NewRetentionJob(repo, cfg.RetentionDays, cfg.RetentionSchedule)
	retention.Start()
	defer retention.Stop()

	h := handlers.NewHandlers(repo, reconciler, crawler, snapshots, refresher)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS))

	r.HandleFunc("/health", healthCheck).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/scrape", h.ScrapeCatalog).Methods("POST")
	apiV1.HandleFunc("/products", h.GetProducts).Methods("GET")
	apiV1.HandleFunc("/products/{id}", h.GetProductDetails).Methods("GET")
	apiV1.HandleFunc("/products/{id}/history", h.GetPriceHistory).Methods("GET")
	apiV1.HandleFunc("/brands", h.GetBrands).Methods("GET")
	apiV1.HandleFunc("/refresh", h.RefreshPrices).Methods("POST")

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.Printf("Server starting on %s:%s", cfg.Host, cfg.Port)
	log.Printf("   GET  /health - Health check")
	log.Printf("   POST /api/v1/scrape - Crawl a catalog URL")
	log.Printf("   GET  /api/v1/products - List catalog entries")
	log.Printf("   GET  /api/v1/products/{id}/history - Price history")
	log.Printf("   GET  /api/v1/brands - Distinct brands")
	log.Printf("   POST /api/v1/refresh - Trigger a price refresh")

	log.Fatal(http.ListenAndServe(cfg.Host+":"+cfg.Port, c.Handler(r)))
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"service":"shelfwatch","status":"healthy","timestamp":"` +
		time.Now().Format(time.RFC3339) + `"}`))
}
