package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase initializes the database connection
func InitDatabase() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS catalog_entries (
			id SERIAL PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			current_price DECIMAL(10,2) NOT NULL,
			link VARCHAR(500) NOT NULL UNIQUE,
			image VARCHAR(500),
			brand VARCHAR(100),
			product_code VARCHAR(100),
			last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			entry_id INTEGER NOT NULL REFERENCES catalog_entries(id) ON DELETE CASCADE,
			price DECIMAL(10,2) NOT NULL,
			recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_catalog_entries_link ON catalog_entries (link)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_entries_brand ON catalog_entries (brand)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_entries_product_code ON catalog_entries (product_code)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_entry ON price_history (entry_id, recorded_at)`,
	}

	for _, query := range queries {
		_, err := DB.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
