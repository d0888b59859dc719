package scraper

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"shelfwatch/models"
)

// SnapshotWriter persists the product list gathered by a crawl run to a
// structured file. The snapshot is consumed by downstream tooling and never
// read back here.
type SnapshotWriter struct {
	dir      string
	compress bool
}

// NewSnapshotWriter creates a snapshot writer targeting dir.
func NewSnapshotWriter(dir string, compress bool) *SnapshotWriter {
	return &SnapshotWriter{
		dir:      dir,
		compress: compress,
	}
}

// Write serializes products as JSON, gzipped when configured, and returns
// the path of the written file.
func (w *SnapshotWriter) Write(products []models.Product) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %v", err)
	}

	name := "products.json"
	if w.compress {
		name += ".gz"
	}
	path := filepath.Join(w.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %v", err)
	}
	defer file.Close()

	var out io.Writer = file
	var gz *gzip.Writer
	if w.compress {
		gz = gzip.NewWriter(file)
		out = gz
	}

	if err := json.NewEncoder(out).Encode(products); err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %v", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", fmt.Errorf("failed to finish snapshot: %v", err)
		}
	}

	log.Printf("%d products saved to %s", len(products), path)
	return path, nil
}
