package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// priceRe finds the first numeric price substring in element text, e.g.
// "1,699.99" inside "$1,699.99 with coupon".
var priceRe = regexp.MustCompile(`[\d,]+\.?\d*`)

// ParsePrice extracts a price from raw element text. ok is false when the
// text holds no parseable numeric substring.
func ParsePrice(text string) (decimal.Decimal, bool) {
	match := priceRe.FindString(text)
	if match == "" {
		return decimal.Decimal{}, false
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}

	return price, true
}

// firstPrice walks a selector chain top to bottom and returns the price from
// the first selector whose element text yields a numeric price. A selector
// that matches an element without a numeric price does not stop the chain;
// only a parsed price counts as a match.
func firstPrice(ctx context.Context, page Page, selectors []string) (decimal.Decimal, bool, error) {
	for _, selector := range selectors {
		text, found, err := page.Text(ctx, selector)
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		if !found {
			continue
		}

		if price, ok := ParsePrice(text); ok {
			return price, true, nil
		}
	}

	return decimal.Decimal{}, false, nil
}
