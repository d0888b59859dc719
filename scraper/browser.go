package scraper

import (
	"log"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserBackend fetches pages through headless Chromium, for catalogs that
// only render their product grid client-side.
type BrowserBackend struct {
	browser *rod.Browser
	timeout time.Duration
}

// NewBrowserBackend launches a headless browser and connects to it.
func NewBrowserBackend(timeout time.Duration) (*BrowserBackend, error) {
	// Use system Chromium in Docker, auto-detect locally
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
		l = l.Bin("/usr/bin/chromium-browser")
		log.Printf("Using system Chromium in Docker environment")
	} else {
		log.Printf("Using auto-detected Chromium (local environment)")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, err
	}

	return &BrowserBackend{
		browser: browser,
		timeout: timeout,
	}, nil
}

// Fetch renders the page and returns its HTML. Browser-side failures are
// treated as transient; the page either loads within the timeout or the
// attempt is abandoned.
func (b *BrowserBackend) Fetch(pageURL string) (string, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", &FetchError{URL: pageURL, Transient: true, Err: err}
	}
	defer page.Close()

	page = page.Timeout(b.timeout)
	if err := page.WaitLoad(); err != nil {
		return "", &FetchError{URL: pageURL, Transient: true, Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		return "", &FetchError{URL: pageURL, Transient: true, Err: err}
	}

	return html, nil
}

// Close shuts down the browser.
func (b *BrowserBackend) Close() error {
	if b.browser != nil {
		return b.browser.Close()
	}
	return nil
}
