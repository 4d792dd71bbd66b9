package scraper

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
		ok       bool
	}{
		{"plain dollar price", "$1,299.99", "1299.99", true},
		{"no currency symbol", "49.95", "49.95", true},
		{"thousands separators", "$12,345,678.90", "12345678.90", true},
		{"integer price", "$199", "199", true},
		{"surrounding text", "Price: $89.99 with coupon", "89.99", true},
		{"euro style symbol prefix", "EUR 1,049.00", "1049", true},
		{"empty string", "", "", false},
		{"no digits", "Currently unavailable", "", false},
		{"whitespace only", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := ParsePrice(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				expected, err := decimal.NewFromString(tt.expected)
				require.NoError(t, err)
				assert.True(t, price.Equal(expected),
					"expected %s, got %s", expected, price)
			}
		})
	}
}

// Any formatted positive price must round-trip through ParsePrice.
func TestParsePrice_Property(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("formatted prices round-trip", prop.ForAll(
		func(dollars int, cents int) bool {
			text := fmt.Sprintf("$%d.%02d", dollars, cents)
			price, ok := ParsePrice(text)
			if !ok {
				return false
			}

			expected := decimal.NewFromInt(int64(dollars)).
				Add(decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)))
			return price.Equal(expected)
		},
		gen.IntRange(0, 999999),
		gen.IntRange(0, 99),
	))

	properties.Property("parsed prices are never negative", prop.ForAll(
		func(text string) bool {
			price, ok := ParsePrice(text)
			return !ok || !price.IsNegative()
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
