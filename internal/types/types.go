// Package types provides common type definitions for the price tracker system.
package types

// AlertType represents what kind of price movement triggers an alert
type AlertType string

const (
	// AlertPriceDrop fires when the price falls below the target
	AlertPriceDrop AlertType = "price_drop"
	// AlertBackInStock fires when an unavailable listing becomes available
	AlertBackInStock AlertType = "back_in_stock"
	// AlertAnyChange fires on any observed price change
	AlertAnyChange AlertType = "any_change"
)

// ValidAlertType reports whether t is one of the supported alert types.
func ValidAlertType(t AlertType) bool {
	switch t {
	case AlertPriceDrop, AlertBackInStock, AlertAnyChange:
		return true
	}
	return false
}

// SortKey represents a product search sort order
type SortKey string

const (
	// SortName orders by product name ascending (the default)
	SortName SortKey = "name"
	// SortPriceLow orders by current price ascending, products without a price last
	SortPriceLow SortKey = "price_low"
	// SortPriceHigh orders by current price descending, products without a price last
	SortPriceHigh SortKey = "price_high"
	// SortNewest orders by product creation time descending
	SortNewest SortKey = "newest"
)

// Recommendation represents the buy-timing advice attached to a product
type Recommendation string

const (
	// RecommendBuyNow indicates the current price is at or near its floor
	RecommendBuyNow Recommendation = "buy_now"
	// RecommendWait indicates the current price is above its recent averages
	RecommendWait Recommendation = "wait"
	// RecommendGoodDeal indicates the current price is below the 30-day average
	RecommendGoodDeal Recommendation = "good_deal"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Message
}
