// Package interfaces exposes the finance services over HTTP. Handlers expect
// the auth middleware to have placed the user ID in the request context.
package interfaces

import (
	"encoding/json"
	"net/http"

	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
	"github.com/finvault/FinVault/internal/logging"
)

// pagination is the paging block attached to list responses.
type pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": payload})
}

func respondPage(w http.ResponseWriter, payload any, page pagination) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": payload, "pagination": page})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}

// respondServiceError translates the service failure taxonomy to status codes.
func respondServiceError(w http.ResponseWriter, logger *logging.Logger, err error) {
	switch {
	case financeErrors.IsValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case financeErrors.IsNotFound(err):
		respondError(w, http.StatusNotFound, "Resource not found")
	case financeErrors.IsUnauthorized(err):
		respondError(w, http.StatusForbidden, "Not authorized")
	case financeErrors.IsConflict(err):
		respondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
