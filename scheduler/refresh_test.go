package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shelfwatch/models"
	"shelfwatch/scraper"
	"shelfwatch/services"
)

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]models.CatalogEntry
	samples []models.PriceHistorySample
	nextID  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]models.CatalogEntry)}
}

func (s *memoryStore) GetByLink(link string) (*models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[link]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (s *memoryStore) UpsertBatch(entries []models.CatalogEntry, samples []models.PriceHistorySample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if entry.ID == 0 {
			s.nextID++
			entry.ID = s.nextID
		}
		s.entries[entry.Link] = entry
	}
	s.samples = append(s.samples, samples...)
	return nil
}

func (s *memoryStore) ListAll() ([]models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.CatalogEntry
	for _, entry := range s.entries {
		all = append(all, entry)
	}
	return all, nil
}

func (s *memoryStore) DeleteOlderThan(threshold time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for link, entry := range s.entries {
		if entry.LastUpdated.Before(threshold) {
			delete(s.entries, link)
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) seed(link string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.entries[link] = models.CatalogEntry{
		ID:           s.nextID,
		Title:        link,
		CurrentPrice: price,
		Link:         link,
		Image:        models.PlaceholderImage,
		Brand:        models.DefaultBrand,
		ProductCode:  models.DefaultProductCode,
		LastUpdated:  time.Now(),
	}
}

// fakeFetcher serves canned product pages and tracks how many fetches run
// at once.
type fakeFetcher struct {
	mu             sync.Mutex
	pages          map[string]string
	permanentFails map[string]bool
	transientFails map[string]int
	gate           chan struct{}
	calls          int
	inFlight       int
	maxInFlight    int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:          make(map[string]string),
		permanentFails: make(map[string]bool),
		transientFails: make(map[string]int),
	}
}

func (f *fakeFetcher) servePrice(link, priceText string) {
	f.pages[link] = fmt.Sprintf(`<html><span class="price-current">%s</span></html>`, priceText)
}

func (f *fakeFetcher) Fetch(pageURL string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate := f.gate

	var err error
	if remaining := f.transientFails[pageURL]; remaining > 0 {
		f.transientFails[pageURL] = remaining - 1
		err = &scraper.FetchError{URL: pageURL, Transient: true, Err: errors.New("timeout")}
	} else if f.permanentFails[pageURL] {
		err = &scraper.FetchError{URL: pageURL, StatusCode: 404, Err: errors.New("gone")}
	}
	content := f.pages[pageURL]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	return content, nil
}

func newTestRefresher(t *testing.T, store *memoryStore, fetcher *fakeFetcher, workers int) *PriceRefresher {
	t.Helper()
	extractor, err := scraper.NewExtractor("https://www.dmo.gov.tr/")
	require.NoError(t, err)
	return NewPriceRefresher(store, services.NewReconciler(store), fetcher, extractor,
		workers, 3, 0, "0 0 0 * * *")
}

func TestRefreshObservesChangedPrice(t *testing.T) {
	store := newMemoryStore()
	store.seed("https://example.com/a", 100)

	fetcher := newFakeFetcher()
	fetcher.servePrice("https://example.com/a", "150,00")

	report, err := newTestRefresher(t, store, fetcher, 2).RunPriceRefresh()
	require.NoError(t, err)
	require.Equal(t, 1, report.Changed)
	require.Equal(t, 1, report.Updated)

	entry := store.entries["https://example.com/a"]
	require.InDelta(t, 150.0, entry.CurrentPrice, 0.001)
	require.Len(t, store.samples, 1)
	require.InDelta(t, 100.0, store.samples[0].Price, 0.001)
}

func TestRefreshTreatsEqualPriceAsUnchanged(t *testing.T) {
	store := newMemoryStore()
	store.seed("https://example.com/a", 150)

	fetcher := newFakeFetcher()
	fetcher.servePrice("https://example.com/a", "150,00")

	report, err := newTestRefresher(t, store, fetcher, 2).RunPriceRefresh()
	require.NoError(t, err)
	require.Equal(t, 1, report.Unchanged)
	require.Zero(t, report.Changed)
	require.Empty(t, store.samples)
}

func TestRefreshBoundsConcurrencyAndIsolatesFailures(t *testing.T) {
	store := newMemoryStore()
	fetcher := newFakeFetcher()
	for i := 0; i < 6; i++ {
		link := fmt.Sprintf("https://example.com/p%d", i)
		store.seed(link, 10)
		fetcher.servePrice(link, "10,00")
	}
	fetcher.permanentFails["https://example.com/p3"] = true

	report, err := newTestRefresher(t, store, fetcher, 2).RunPriceRefresh()
	require.NoError(t, err)
	require.Equal(t, 6, report.Total)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 5, report.Unchanged)

	// One fetch per entry, no retries for permanent failures.
	require.Equal(t, 6, fetcher.calls)
	require.LessOrEqual(t, fetcher.maxInFlight, 2)
}

func TestRefreshRetriesTransientFailures(t *testing.T) {
	store := newMemoryStore()
	store.seed("https://example.com/a", 100)

	fetcher := newFakeFetcher()
	fetcher.servePrice("https://example.com/a", "150,00")
	fetcher.transientFails["https://example.com/a"] = 2

	report, err := newTestRefresher(t, store, fetcher, 1).RunPriceRefresh()
	require.NoError(t, err)
	require.Equal(t, 1, report.Changed)
	require.Zero(t, report.Failed)
	require.Equal(t, 3, fetcher.calls)
}

func TestRefreshGivesUpAfterRetryBudget(t *testing.T) {
	store := newMemoryStore()
	store.seed("https://example.com/a", 100)

	fetcher := newFakeFetcher()
	fetcher.servePrice("https://example.com/a", "150,00")
	fetcher.transientFails["https://example.com/a"] = 5

	report, err := newTestRefresher(t, store, fetcher, 1).RunPriceRefresh()
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 3, fetcher.calls)

	entry := store.entries["https://example.com/a"]
	require.InDelta(t, 100.0, entry.CurrentPrice, 0.001)
}

func TestRefreshRejectsOverlappingRun(t *testing.T) {
	store := newMemoryStore()
	store.seed("https://example.com/a", 100)

	fetcher := newFakeFetcher()
	fetcher.servePrice("https://example.com/a", "150,00")
	fetcher.gate = make(chan struct{})

	pr := newTestRefresher(t, store, fetcher, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := pr.RunPriceRefresh()
		require.NoError(t, err)
	}()

	// Wait for the first run to reach its blocked fetch.
	require.Eventually(t, func() bool {
		fetcher.mu.Lock()
		defer fetcher.mu.Unlock()
		return fetcher.inFlight > 0
	}, time.Second, time.Millisecond)

	_, err := pr.RunPriceRefresh()
	require.ErrorIs(t, err, ErrRefreshInProgress)

	close(fetcher.gate)
	<-done
}

func TestRetentionJobRemovesStaleEntries(t *testing.T) {
	store := newMemoryStore()
	store.seed("https://example.com/old", 10)
	store.seed("https://example.com/new", 20)

	old := store.entries["https://example.com/old"]
	old.LastUpdated = time.Now().AddDate(0, 0, -45)
	store.entries["https://example.com/old"] = old

	job := NewRetentionJob(store, 30, "0 30 0 * * *")
	job.RunOnce()

	require.Len(t, store.entries, 1)
	require.Contains(t, store.entries, "https://example.com/new")
}
