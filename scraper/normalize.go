package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// NormalizePrice converts a locale-formatted price string where "." groups
// thousands and "," marks decimals (e.g. "1.234,56 TL") into its numeric
// value. It fails when the input carries no digits at all.
func NormalizePrice(text string) (float64, error) {
	normalized := strings.ReplaceAll(text, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	cleaned := nonPriceChars.ReplaceAllString(normalized, "")

	if cleaned == "" || strings.Trim(cleaned, ".") == "" {
		return 0, fmt.Errorf("no digits in price text %q", text)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse price %q: %v", text, err)
	}

	return value, nil
}
