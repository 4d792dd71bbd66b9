package api

import (
	"net/http"
	"time"

	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/models"
	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// handleSearchProducts handles GET /api/products/search.
func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := s.products.Search(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGetCategories handles GET /api/products/categories.
func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

// handleGetProduct handles GET /api/products/{id}.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	detail, err := s.products.GetDetail(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product": detail,
	})
}

// trackProductRequest is the body of POST /api/products/track.
type trackProductRequest struct {
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
	TargetPrice *decimal.Decimal `json:"target_price,omitempty"`
	AlertType   types.AlertType  `json:"alert_type,omitempty"`
}

// handleTrackProduct handles POST /api/products/track. A repeated track
// request for the same product updates the existing alert instead of
// creating a duplicate.
func (s *Server) handleTrackProduct(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req trackProductRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, apperrors.NewValidationError("product_id", "must be a positive integer"))
		return
	}
	if req.TargetPrice != nil && !req.TargetPrice.IsPositive() {
		respondError(w, apperrors.NewValidationError("target_price", "must be positive"))
		return
	}
	if req.AlertType == "" {
		req.AlertType = types.AlertPriceDrop
	}

	exists, err := s.products.Exists(r.Context(), req.ProductID)
	if err != nil {
		respondError(w, err)
		return
	}
	if !exists {
		respondError(w, apperrors.NewNotFoundError("product"))
		return
	}

	alert := &models.PriceAlert{
		UserID:      claims.UserID,
		ProductID:   req.ProductID,
		TargetPrice: req.TargetPrice,
		AlertType:   req.AlertType,
	}

	inserted, err := s.alerts.Upsert(r.Context(), alert)
	if err != nil {
		respondError(w, err)
		return
	}

	status := http.StatusOK
	message := "price alert updated"
	if inserted {
		status = http.StatusCreated
		message = "product tracking started"
	}

	respondMessage(w, status, map[string]interface{}{"alert": alert}, message)
}

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// handleGetPriceHistory handles GET /api/products/{id}/price-history.
func (s *Server) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	days, err := parseQueryInt(r, "days", defaultHistoryDays)
	if err != nil {
		respondError(w, err)
		return
	}
	if days < 1 {
		days = defaultHistoryDays
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}

	exists, err := s.products.Exists(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if !exists {
		respondError(w, apperrors.NewNotFoundError("product"))
		return
	}

	retailer := r.URL.Query().Get("retailer")
	since := time.Now().AddDate(0, 0, -days)

	points, err := s.history.PriceHistory(r.Context(), id, since, retailer)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"price_history": points,
		"period_days":   days,
		"retailer":      retailer,
	})
}

// handleGetRecommendations handles GET /api/products/{id}/recommendations.
func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	exists, err := s.products.Exists(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if !exists {
		respondError(w, apperrors.NewNotFoundError("product"))
		return
	}

	recommendation, err := s.recommendations.Latest(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	if recommendation == nil {
		respondMessage(w, http.StatusOK, map[string]interface{}{
			"recommendation": nil,
		}, "no recommendation available yet")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recommendation": recommendation,
	})
}

// handleGetTrend handles GET /api/products/{id}/trend, served from the
// observation archive when one is configured.
func (s *Server) handleGetTrend(w http.ResponseWriter, r *http.Request) {
	if s.trends == nil {
		respondError(w, apperrors.NewNotFoundError("trend data"))
		return
	}

	id, err := parsePathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	days, err := parseQueryInt(r, "days", defaultHistoryDays)
	if err != nil {
		respondError(w, err)
		return
	}
	if days < 1 {
		days = defaultHistoryDays
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}

	trend, err := s.trends.DailyTrend(r.Context(), id, days)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trend":       trend,
		"period_days": days,
	})
}
