package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductListing links one product to one retailer. Unique per
// (product, retailer).
type ProductListing struct {
	ID                int64      `json:"id"`
	ProductID         int64      `json:"product_id"`
	RetailerID        int64      `json:"retailer_id"`
	RetailerProductID string     `json:"retailer_product_id,omitempty"`
	RetailerURL       string     `json:"retailer_url"`
	IsActive          bool       `json:"is_active"`
	LastScraped       *time.Time `json:"last_scraped,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ListingWithPrice is a listing joined with its retailer and most recent
// price observation.
type ListingWithPrice struct {
	ProductListing
	Retailer      *Retailer        `json:"retailer"`
	AffiliateURL  string           `json:"affiliate_url,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	IsAvailable   *bool            `json:"is_available,omitempty"`
	LastUpdated   *time.Time       `json:"last_updated,omitempty"`
}

// PriceObservation is an immutable, append-only price fact tied to one
// listing. Observations are never updated or deleted.
type PriceObservation struct {
	ID               int64            `json:"id"`
	ProductListingID int64            `json:"product_listing_id"`
	Price            decimal.Decimal  `json:"price"`
	OriginalPrice    *decimal.Decimal `json:"original_price,omitempty"`
	Currency         string           `json:"currency"`
	IsAvailable      bool             `json:"is_available"`
	ScrapedAt        time.Time        `json:"scraped_at"`
}

// PricePoint is an observation annotated with its retailer, as served by the
// price history endpoint.
type PricePoint struct {
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ScrapedAt     time.Time        `json:"scraped_at"`
	RetailerName  string           `json:"retailer_name"`
	RetailerLogo  string           `json:"retailer_logo,omitempty"`
}
