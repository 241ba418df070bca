package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/logging"
)

type BudgetHandler struct {
	service *application.BudgetService
	logger  *logging.Logger
}

func NewBudgetHandler(service *application.BudgetService, logger *logging.Logger) *BudgetHandler {
	return &BudgetHandler{service: service, logger: logger.WithComponent("budgets_http")}
}

func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var budget domain.Budget
	if err := json.NewDecoder(r.Body).Decode(&budget); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	budget.UserID = requestUserID(r)

	if err := h.service.CreateBudget(r.Context(), &budget); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, budget)
}

func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.service.GetUserBudgets(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, budgets)
}

func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	budget, err := h.service.GetBudget(r.Context(), requestUserID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.BudgetPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	budget, err := h.service.UpdateBudget(r.Context(), requestUserID(r), r.PathValue("id"), patch)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBudget(r.Context(), requestUserID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Budget deleted."})
}

// Status reports per-budget spending for the current cycle.
func (h *BudgetHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.Status(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, statuses)
}

func (h *BudgetHandler) Insights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.service.Insights(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}
