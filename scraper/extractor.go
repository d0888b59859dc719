package scraper

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shelfwatch/models"
)

// ErrBadPagination signals a pagination block whose current-page indicator
// is present but not a number, so the crawl cannot tell where it is.
var ErrBadPagination = errors.New("malformed pagination indicator")

// Extractor parses product listing pages. Product links and images are
// resolved against a fixed base origin; next-page links resolve against the
// page they were found on.
type Extractor struct {
	base *url.URL
}

// NewExtractor creates an extractor resolving relative links against baseURL.
func NewExtractor(baseURL string) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %v", baseURL, err)
	}
	return &Extractor{base: base}, nil
}

// ExtractProducts pulls all product cards off a listing page. Cards missing
// a title or link, or whose price text does not normalize, are skipped and
// counted rather than failing the page.
func (e *Extractor) ExtractProducts(content string) ([]models.Product, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse page: %v", err)
	}

	var products []models.Product
	skipped := 0
	doc.Find(".product-item-holder").Each(func(_ int, card *goquery.Selection) {
		product, err := e.parseCard(card)
		if err != nil {
			skipped++
			log.Printf("Skipping product card: %v", err)
			return
		}
		products = append(products, product)
	})

	return products, skipped, nil
}

// parseCard extracts one product card.
func (e *Extractor) parseCard(card *goquery.Selection) (models.Product, error) {
	titleEl := card.Find(".title a").First()
	if titleEl.Length() == 0 {
		return models.Product{}, fmt.Errorf("card has no title")
	}
	title := strings.TrimSpace(titleEl.Text())

	href, _ := titleEl.Attr("href")
	link := e.resolve(href)
	if href == "" || link == "" {
		return models.Product{}, fmt.Errorf("card %q has no link", title)
	}

	image := e.resolve(models.PlaceholderImage)
	if src, ok := card.Find(".image img").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		image = e.resolve(src)
	}

	priceText := strings.TrimSpace(card.Find(".price-current").First().Text())
	price, err := NormalizePrice(priceText)
	if err != nil {
		return models.Product{}, fmt.Errorf("card %q: %v", title, err)
	}

	// Brand label is "BRAND <code>"; the first field is the brand itself.
	brand := ""
	productCode := ""
	if brandEl := card.Find(".brand").First(); brandEl.Length() > 0 {
		if fields := strings.Fields(brandEl.Text()); len(fields) > 0 {
			brand = fields[0]
		}
		productCode = strings.TrimSpace(brandEl.Find("span").First().Text())
	}

	return models.NewProduct(title, price, link, image, brand, productCode)
}

// NextPageURL resolves the link to the page after the current one. It
// returns an empty URL when the catalog has no further pages, and
// ErrBadPagination when the current-page indicator is not numeric.
func (e *Extractor) NextPageURL(content, currentURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %v", err)
	}

	currentEl := doc.Find(".pagination .current").First()
	if currentEl.Length() == 0 {
		return "", nil
	}

	currentPage, err := strconv.Atoi(strings.TrimSpace(currentEl.Text()))
	if err != nil {
		return "", ErrBadPagination
	}

	next := ""
	doc.Find(".pagination a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		pageNum, err := strconv.Atoi(strings.TrimSpace(a.Text()))
		if err != nil || pageNum != currentPage+1 {
			return true
		}
		if href, ok := a.Attr("href"); ok {
			next = resolveAgainst(currentURL, href)
		}
		return false
	})

	return next, nil
}

// ExtractPrice pulls the current price off a single product page, for the
// refresh path.
func (e *Extractor) ExtractPrice(content string) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return 0, fmt.Errorf("failed to parse page: %v", err)
	}

	priceText := strings.TrimSpace(doc.Find(".price-current").First().Text())
	if priceText == "" {
		return 0, fmt.Errorf("no price element on page")
	}

	return NormalizePrice(priceText)
}

// resolve turns a relative href into an absolute URL on the base origin.
func (e *Extractor) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

func resolveAgainst(baseRaw, href string) string {
	base, err := url.Parse(baseRaw)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
