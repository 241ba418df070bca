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

// exportLimit caps a CSV export in one request.
const exportLimit = 100000

type TransactionHandler struct {
	service *application.TransactionService
	logger  *logging.Logger
}

func NewTransactionHandler(service *application.TransactionService, logger *logging.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, logger: logger.WithComponent("transactions_http")}
}

type createTransactionRequest struct {
	AccountID  *string        `json:"account"`
	Type       string         `json:"type"`
	SubType    string         `json:"subType"`
	Amount     float64        `json:"amount"`
	Currency   string         `json:"currency"`
	Category   string         `json:"category"`
	Date       string         `json:"date"`
	Notes      string         `json:"notes"`
	Tags       []string       `json:"tags"`
	Recurrence string         `json:"recurrence"`
	Splits     []domain.Split `json:"splitTransactions"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	transaction := domain.Transaction{
		UserID:           requestUserID(r),
		AccountID:        req.AccountID,
		Type:             req.Type,
		SubType:          req.SubType,
		Amount:           req.Amount,
		OriginalCurrency: req.Currency,
		Category:         req.Category,
		Notes:            req.Notes,
		Tags:             req.Tags,
		Recurrence:       req.Recurrence,
		Splits:           req.Splits,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		transaction.Date = date
	}

	if err := h.service.CreateTransaction(r.Context(), &transaction); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, total, err := h.service.GetUserTransactions(r.Context(), requestUserID(r), filter)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	respondPage(w, transactions, pagination{Total: total, Page: filter.Page, Limit: filter.Limit})
}

// Export streams the filtered transactions as a CSV attachment.
func (h *TransactionHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := h.filterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Page = 1
	filter.Limit = exportLimit

	transactions, _, err := h.service.GetUserTransactions(r.Context(), requestUserID(r), filter)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename("transactions", time.Now())+`"`)
	if err := export.WriteTransactionsCSV(w, transactions); err != nil {
		h.logger.Error("transaction export failed", "error", err)
	}
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.service.GetTransaction(r.Context(), requestUserID(r), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	transaction, err := h.service.UpdateTransaction(r.Context(), requestUserID(r), r.PathValue("id"), patch)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTransaction(r.Context(), requestUserID(r), r.PathValue("id")); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted."})
}

type bulkTransactionRequest struct {
	IDs      []string `json:"ids"`
	Action   string   `json:"action"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags"`
}

// Bulk updates or deletes a set of transactions in one call. Action is
// "update" (default) or "delete".
func (h *TransactionHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	if err := h.service.BulkUpdate(r.Context(), requestUserID(r), req.IDs, req.Category, req.Tags, req.Action); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"processed": len(req.IDs)})
}

func (h *TransactionHandler) filterFromQuery(r *http.Request) (domain.TransactionFilter, error) {
	filter := domain.TransactionFilter{
		Type:      r.URL.Query().Get("type"),
		Category:  r.URL.Query().Get("category"),
		Query:     r.URL.Query().Get("query"),
		MinAmount: queryFloat(r, "minAmount"),
		MaxAmount: queryFloat(r, "maxAmount"),
		Tags:      queryList(r, "tags"),
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
	}
	start, err := queryDate(r, "startDate")
	if err != nil {
		return filter, errInvalidStartDate
	}
	end, err := queryDate(r, "endDate")
	if err != nil {
		return filter, errInvalidEndDate
	}
	filter.StartDate = start
	filter.EndDate = end
	return filter, nil
}
