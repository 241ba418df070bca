package interfaces

import (
	"net/http"

	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/logging"
)

type DashboardHandler struct {
	service *application.DashboardService
	logger  *logging.Logger
}

func NewDashboardHandler(service *application.DashboardService, logger *logging.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: logger.WithComponent("dashboard_http")}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
