package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/price-tracker/internal/errors"
	"github.com/price-tracker/internal/logging"
	"github.com/price-tracker/internal/types"
)

// Envelope is the uniform response shape. Success responses carry data and
// an optional message; failures carry a structured error instead.
type Envelope struct {
	Success bool                `json:"success"`
	Data    interface{}         `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Error   *types.ServiceError `json:"error,omitempty"`
}

// respondJSON sends a success envelope.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	respondMessage(w, statusCode, data, "")
}

// respondMessage sends a success envelope with a human-readable message.
func respondMessage(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// respondError classifies err and sends a failure envelope. Internal causes
// are logged, never serialized to clients.
func respondError(w http.ResponseWriter, err error) {
	catErr := apperrors.AsCategorized(err)

	if catErr.Cause != nil {
		logging.GetGlobalLogger().WithError(catErr.Cause).Error(catErr.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(catErr.StatusCode)

	json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Error:   catErr.ToServiceError(),
	})
}

// parseJSONBody parses a JSON request body, rejecting unknown fields.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.NewBadRequestError("invalid JSON request body")
	}
	return nil
}
