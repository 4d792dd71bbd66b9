package api

import (
	"net/http"

	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/types"
	"github.com/shopspring/decimal"
)

// handleGetProfile handles GET /api/user/profile.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	user, err := s.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// updateProfileRequest is the body of PUT /api/user/profile.
type updateProfileRequest struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// handleUpdateProfile handles PUT /api/user/profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req updateProfileRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, apperrors.NewBadRequestError("name fields must be at most 100 characters"))
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), claims.UserID, req.FirstName, req.LastName)
	if err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, map[string]interface{}{"user": user}, "profile updated")
}

// handleListAlerts handles GET /api/user/alerts.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	alerts, err := s.alerts.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// updateAlertRequest is the body of PUT /api/user/alerts/{id}.
type updateAlertRequest struct {
	TargetPrice *decimal.Decimal `json:"target_price,omitempty"`
	AlertType   types.AlertType  `json:"alert_type,omitempty"`
}

// handleUpdateAlert handles PUT /api/user/alerts/{id}.
func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	alertID, err := parsePathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateAlertRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.TargetPrice != nil && !req.TargetPrice.IsPositive() {
		respondError(w, apperrors.NewValidationError("target_price", "must be positive"))
		return
	}
	if req.AlertType == "" {
		req.AlertType = types.AlertPriceDrop
	}

	alert, err := s.alerts.Update(r.Context(), alertID, claims.UserID, req.TargetPrice, req.AlertType)
	if err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, map[string]interface{}{"alert": alert}, "alert updated")
}

// handleDeleteAlert handles DELETE /api/user/alerts/{id}. The alert is
// deactivated, not removed; its history stays queryable.
func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	alertID, err := parsePathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.alerts.Deactivate(r.Context(), alertID, claims.UserID); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, nil, "alert removed")
}

// handleUserDashboard handles GET /api/user/dashboard.
func (s *Server) handleUserDashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	user, err := s.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	total, active, err := s.alerts.CountByUser(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	alerts, err := s.alerts.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":          user,
		"total_alerts":  total,
		"active_alerts": active,
		"alerts":        alerts,
	})
}
