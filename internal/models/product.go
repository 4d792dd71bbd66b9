// Package models defines the persisted entities of the price tracker.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product
type Product struct {
	ID             int64                  `json:"id"`
	Name           string                 `json:"name"`
	Brand          string                 `json:"brand,omitempty"`
	ModelNumber    string                 `json:"model_number,omitempty"`
	CategoryID     *int64                 `json:"category_id,omitempty"`
	ImageURL       string                 `json:"image_url,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Specifications map[string]interface{} `json:"specifications,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ProductSummary is a product annotated with its current cheapest available
// retailer price, as returned by search.
type ProductSummary struct {
	Product
	Category      *Category        `json:"category,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	IsAvailable   *bool            `json:"is_available,omitempty"`
	RetailerName  string           `json:"retailer_name,omitempty"`
	RetailerLogo  string           `json:"retailer_logo,omitempty"`
}

// ProductDetail is a product with its listings, recent observation history and
// latest recommendation, as returned by the detail endpoint.
type ProductDetail struct {
	Product
	Category       *Category            `json:"category,omitempty"`
	Listings       []*ListingWithPrice  `json:"listings"`
	PriceHistory   []*PricePoint        `json:"price_history"`
	Recommendation *PriceRecommendation `json:"recommendation"`
}
