package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/logging"
)

type InvestmentHandler struct {
	service *application.InvestmentService
	logger  *logging.Logger
}

func NewInvestmentHandler(service *application.InvestmentService, logger *logging.Logger) *InvestmentHandler {
	return &InvestmentHandler{service: service, logger: logger.WithComponent("investments_http")}
}

func (h *InvestmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var investment domain.Investment
	if err := json.NewDecoder(r.Body).Decode(&investment); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	investment.UserID = requestUserID(r)

	if err := h.service.CreateInvestment(r.Context(), &investment); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, investment)
}

func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	page := queryInt(r, "page")

	investments, total, err := h.service.GetUserInvestments(r.Context(), requestUserID(r), limit, page)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	respondPage(w, investments, pagination{Total: total, Page: page, Limit: limit})
}

func (h *InvestmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	investment, err := h.service.GetInvestment(r.Context(), requestUserID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, investment)
}

func (h *InvestmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.InvestmentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	investment, err := h.service.UpdateInvestment(r.Context(), requestUserID(r), r.PathValue("id"), patch)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, investment)
}

func (h *InvestmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteInvestment(r.Context(), requestUserID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Investment deleted."})
}
