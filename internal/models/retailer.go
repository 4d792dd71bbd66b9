package models

import (
	"strings"
	"time"
)

// Retailer represents a retailer whose listings are tracked
type Retailer struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Domain           string     `json:"domain"`
	LogoURL          string     `json:"logo_url,omitempty"`
	AffiliateBaseURL string     `json:"affiliate_base_url,omitempty"`
	ScrapingEnabled  bool       `json:"scraping_enabled"`
	LastScraped      *time.Time `json:"last_scraped,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AffiliateURL renders the retailer's affiliate URL template for a listing's
// retailer-side product identifier. Empty when no template is configured.
func (r *Retailer) AffiliateURL(retailerProductID string) string {
	if r.AffiliateBaseURL == "" || retailerProductID == "" {
		return ""
	}
	return strings.ReplaceAll(r.AffiliateBaseURL, "{product_id}", retailerProductID)
}
