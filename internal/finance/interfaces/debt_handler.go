package interfaces

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/finvault/FinVault/internal/export"
	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/logging"
)

type DebtHandler struct {
	service *application.DebtService
	logger  *logging.Logger
}

func NewDebtHandler(service *application.DebtService, logger *logging.Logger) *DebtHandler {
	return &DebtHandler{service: service, logger: logger.WithComponent("debts_http")}
}

func (h *DebtHandler) Create(w http.ResponseWriter, r *http.Request) {
	var debt domain.Debt
	if err := json.NewDecoder(r.Body).Decode(&debt); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	debt.UserID = requestUserID(r)

	if err := h.service.CreateDebt(r.Context(), &debt); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, debt)
}

func (h *DebtHandler) List(w http.ResponseWriter, r *http.Request) {
	debts, err := h.service.GetUserDebts(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, debts)
}

func (h *DebtHandler) Get(w http.ResponseWriter, r *http.Request) {
	debt, err := h.service.GetDebt(r.Context(), requestUserID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, debt)
}

func (h *DebtHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.DebtPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	debt, err := h.service.UpdateDebt(r.Context(), requestUserID(r), r.PathValue("id"), patch)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, debt)
}

func (h *DebtHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDebt(r.Context(), requestUserID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Debt deleted."})
}

// Strategies returns snowball and avalanche repayment orderings.
func (h *DebtHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.service.Strategies(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, strategies)
}

type recordPaymentRequest struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

// RecordPayment lowers the balance and mirrors the payment as an expense
// transaction.
func (h *DebtHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		date = parsed
	}

	debt, err := h.service.RecordPayment(r.Context(), requestUserID(r), r.PathValue("id"), req.Amount, date)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, debt)
}

// Export streams all debts as a CSV attachment.
func (h *DebtHandler) Export(w http.ResponseWriter, r *http.Request) {
	debts, err := h.service.GetUserDebts(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename("debts", time.Now())+`"`)
	if err := export.WriteDebtsCSV(w, debts); err != nil {
		h.logger.Error("debt export failed", "error", err)
	}
}
