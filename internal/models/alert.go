package models

import (
	"time"

	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// PriceAlert represents a user's tracking request for a product. At most one
// active alert exists per (user, product) pair; a repeated track request
// updates the existing row in place.
type PriceAlert struct {
	ID            int64            `json:"id"`
	UserID        int64            `json:"user_id"`
	ProductID     int64            `json:"product_id"`
	TargetPrice   *decimal.Decimal `json:"target_price,omitempty"`
	AlertType     types.AlertType  `json:"alert_type"`
	IsActive      bool             `json:"is_active"`
	EmailSent     bool             `json:"email_sent"`
	LastAlertSent *time.Time       `json:"last_alert_sent,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
