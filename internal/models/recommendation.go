package models

import (
	"time"

	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// PriceRecommendation is buy-timing advice derived from a product's
// observation history. Only the most recent row per product is served.
type PriceRecommendation struct {
	ID              int64                `json:"id"`
	ProductID       int64                `json:"product_id"`
	CurrentPrice    decimal.Decimal      `json:"current_price"`
	AveragePrice30d *decimal.Decimal     `json:"average_price_30d,omitempty"`
	AveragePrice90d *decimal.Decimal     `json:"average_price_90d,omitempty"`
	LowestPriceEver *decimal.Decimal     `json:"lowest_price_ever,omitempty"`
	Recommendation  types.Recommendation `json:"recommendation"`
	ConfidenceScore *float64             `json:"confidence_score,omitempty"`
	Reasoning       string               `json:"reasoning,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}
