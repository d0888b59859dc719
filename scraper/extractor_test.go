package scraper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"shelfwatch/models"
)

const testBase = "https://www.dmo.gov.tr/"

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(testBase)
	require.NoError(t, err)
	return e
}

func productCard(title, href, price string) string {
	return fmt.Sprintf(`
		<div class="product-item-holder">
			<div class="image"><img src="/img/%s.jpg"></div>
			<div class="title"><a href="%s">%s</a></div>
			<span class="price-current">%s</span>
			<div class="brand">ACME <span>PC-100</span></div>
		</div>`, title, href, title, price)
}

func listingPage(body string) string {
	return "<html><body>" + body + "</body></html>"
}

func TestExtractProductsParsesCard(t *testing.T) {
	e := newTestExtractor(t)

	html := listingPage(productCard("Laptop", "/urun/laptop-15", "1.234,56 TL"))
	products, skipped, err := e.ExtractProducts(html)
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Len(t, products, 1)

	p := products[0]
	require.Equal(t, "Laptop", p.Title)
	require.InDelta(t, 1234.56, p.Price, 0.001)
	require.Equal(t, "https://www.dmo.gov.tr/urun/laptop-15", p.Link)
	require.Equal(t, "https://www.dmo.gov.tr/img/Laptop.jpg", p.Image)
	require.Equal(t, "ACME", p.Brand)
	require.Equal(t, "PC-100", p.ProductCode)
}

func TestExtractProductsAppliesDefaults(t *testing.T) {
	e := newTestExtractor(t)

	html := listingPage(`
		<div class="product-item-holder">
			<div class="title"><a href="/urun/plain">Plain</a></div>
			<span class="price-current">10,00</span>
		</div>`)
	products, skipped, err := e.ExtractProducts(html)
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Len(t, products, 1)

	p := products[0]
	require.Equal(t, "https://www.dmo.gov.tr"+models.PlaceholderImage, p.Image)
	require.Equal(t, models.DefaultBrand, p.Brand)
	require.Equal(t, models.DefaultProductCode, p.ProductCode)
}

func TestExtractProductsSkipsBrokenCards(t *testing.T) {
	e := newTestExtractor(t)

	html := listingPage(`
		<div class="product-item-holder">
			<span class="price-current">10,00</span>
		</div>
		<div class="product-item-holder">
			<div class="title"><a href="/urun/priceless">Priceless</a></div>
			<span class="price-current">call us</span>
		</div>` +
		productCard("Good", "/urun/good", "25,00"))

	products, skipped, err := e.ExtractProducts(html)
	require.NoError(t, err)
	require.Equal(t, 2, skipped)
	require.Len(t, products, 1)
	require.Equal(t, "Good", products[0].Title)
}

func paginationBlock(current string, links ...int) string {
	block := `<div class="pagination"><span class="current">` + current + `</span>`
	for _, n := range links {
		block += fmt.Sprintf(`<a href="?page=%d">%d</a>`, n, n)
	}
	return block + `</div>`
}

func TestNextPageURLFindsFollowingPage(t *testing.T) {
	e := newTestExtractor(t)

	html := listingPage(paginationBlock("2", 1, 2, 3))
	next, err := e.NextPageURL(html, "https://www.dmo.gov.tr/katalog?page=2")
	require.NoError(t, err)
	require.Equal(t, "https://www.dmo.gov.tr/katalog?page=3", next)
}

func TestNextPageURLOnLastPage(t *testing.T) {
	e := newTestExtractor(t)

	html := listingPage(paginationBlock("3", 1, 2, 3))
	next, err := e.NextPageURL(html, "https://www.dmo.gov.tr/katalog?page=3")
	require.NoError(t, err)
	require.Empty(t, next)
}

func TestNextPageURLWithoutPagination(t *testing.T) {
	e := newTestExtractor(t)

	next, err := e.NextPageURL(listingPage(""), testBase)
	require.NoError(t, err)
	require.Empty(t, next)
}

func TestNextPageURLMalformedIndicator(t *testing.T) {
	e := newTestExtractor(t)

	html := listingPage(paginationBlock("first", 1, 2))
	_, err := e.NextPageURL(html, testBase)
	require.ErrorIs(t, err, ErrBadPagination)
}

func TestExtractPrice(t *testing.T) {
	e := newTestExtractor(t)

	price, err := e.ExtractPrice(`<html><span class="price-current">150,00 TL</span></html>`)
	require.NoError(t, err)
	require.InDelta(t, 150.0, price, 0.001)

	_, err = e.ExtractPrice(`<html><p>sold out</p></html>`)
	require.Error(t, err)
}
