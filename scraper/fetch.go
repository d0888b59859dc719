package scraper

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"shelfwatch/config"
)

// FetchBackend retrieves the rendered content of a page. Implementations
// must be safe for concurrent use; every call is an independent request.
type FetchBackend interface {
	Fetch(pageURL string) (string, error)
}

// FetchError classifies a failed fetch. Transient failures (timeouts,
// connection errors, 429/5xx responses) are worth retrying; everything else
// is permanent.
type FetchError struct {
	URL        string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch error for %s (status %d): %v", kind, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch error for %s: %v", kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a fetch failure worth retrying.
func IsTransient(err error) bool {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Transient
	}
	return false
}

// HTTPBackend fetches pages with a plain HTTP client and a stable
// identifying User-Agent.
type HTTPBackend struct {
	client    *http.Client
	userAgent string
}

// NewHTTPBackend creates an HTTP fetch backend with a per-request timeout.
func NewHTTPBackend(timeout time.Duration, userAgent string) *HTTPBackend {
	return &HTTPBackend{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Fetch retrieves the page body, classifying failures as transient or
// permanent.
func (b *HTTPBackend) Fetch(pageURL string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", &FetchError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Transient:  transient,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: pageURL, Transient: true, Err: err}
	}

	return string(body), nil
}

// NewFetchBackend selects the backend variant named by the configuration.
func NewFetchBackend(cfg *config.Config) (FetchBackend, error) {
	switch cfg.FetchBackend {
	case config.BackendBrowser:
		return NewBrowserBackend(cfg.FetchTimeout)
	case config.BackendHTTP:
		return NewHTTPBackend(cfg.FetchTimeout, cfg.UserAgent), nil
	default:
		return nil, fmt.Errorf("unknown fetch backend %q", cfg.FetchBackend)
	}
}
