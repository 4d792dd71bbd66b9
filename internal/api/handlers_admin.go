package api

import (
	"net/http"

	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/models"
)

// handleListRetailers handles GET /api/admin/retailers.
func (s *Server) handleListRetailers(w http.ResponseWriter, r *http.Request) {
	retailers, err := s.retailers.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"retailers": retailers})
}

// retailerRequest is the body of retailer create and update calls.
type retailerRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Domain           string `json:"domain" validate:"required,fqdn"`
	LogoURL          string `json:"logo_url,omitempty" validate:"omitempty,url"`
	AffiliateBaseURL string `json:"affiliate_base_url,omitempty" validate:"omitempty,url"`
	ScrapingEnabled  bool   `json:"scraping_enabled"`
}

// handleCreateRetailer handles POST /api/admin/retailers.
func (s *Server) handleCreateRetailer(w http.ResponseWriter, r *http.Request) {
	var req retailerRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, apperrors.NewBadRequestError("name and a valid domain are required"))
		return
	}

	retailer := &models.Retailer{
		Name:             req.Name,
		Domain:           req.Domain,
		LogoURL:          req.LogoURL,
		AffiliateBaseURL: req.AffiliateBaseURL,
		ScrapingEnabled:  req.ScrapingEnabled,
	}

	if err := s.retailers.Create(r.Context(), retailer); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusCreated, map[string]interface{}{"retailer": retailer}, "retailer created")
}

// handleUpdateRetailer handles PUT /api/admin/retailers/{id}.
func (s *Server) handleUpdateRetailer(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req retailerRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		respondError(w, apperrors.NewBadRequestError("name and a valid domain are required"))
		return
	}

	retailer := &models.Retailer{
		ID:               id,
		Name:             req.Name,
		Domain:           req.Domain,
		LogoURL:          req.LogoURL,
		AffiliateBaseURL: req.AffiliateBaseURL,
		ScrapingEnabled:  req.ScrapingEnabled,
	}

	if err := s.retailers.Update(r.Context(), retailer); err != nil {
		respondError(w, err)
		return
	}

	respondMessage(w, http.StatusOK, map[string]interface{}{"retailer": retailer}, "retailer updated")
}

// handleScrapingStatus handles GET /api/admin/scraping/status.
func (s *Server) handleScrapingStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.retailers.Status(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"retailers": statuses})
}

// handleTriggerScrape handles POST /api/admin/scraping/trigger. The batch
// runs in the background; the response only acknowledges the start.
func (s *Server) handleTriggerScrape(w http.ResponseWriter, r *http.Request) {
	if s.triggerScrape == nil {
		respondError(w, apperrors.NewBadRequestError("no scraper is attached to this server"))
		return
	}

	go s.triggerScrape()

	respondMessage(w, http.StatusAccepted, nil, "scraping batch started")
}

// handleAdminDashboard handles GET /api/admin/dashboard.
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	userCount, err := s.users.Count(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	statuses, err := s.retailers.Status(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	var activeListings int64
	for _, status := range statuses {
		activeListings += status.ActiveListings
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_users":     userCount,
		"active_listings": activeListings,
		"retailers":       statuses,
	})
}
