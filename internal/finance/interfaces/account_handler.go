package interfaces

import (
	"encoding/json"
	"net/http"

	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/logging"
)

type AccountHandler struct {
	service *application.AccountService
	logger  *logging.Logger
}

func NewAccountHandler(service *application.AccountService, logger *logging.Logger) *AccountHandler {
	return &AccountHandler{service: service, logger: logger.WithComponent("accounts_http")}
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var account domain.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	account.UserID = requestUserID(r)

	if err := h.service.CreateAccount(r.Context(), &account); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.GetUserAccounts(r.Context(), requestUserID(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.AccountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), requestUserID(r), r.PathValue("id"), patch)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// Delete removes an account. Without cascade=true the delete is rejected while
// transactions still reference the account.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cascade := r.URL.Query().Get("cascade") == "true"
	if err := h.service.DeleteAccount(r.Context(), requestUserID(r), r.PathValue("id"), cascade); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Account deleted."})
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "startDate")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid startDate")
		return
	}
	end, err := queryDate(r, "endDate")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid endDate")
		return
	}

	transactions, err := h.service.GetAccountTransactions(
		r.Context(), requestUserID(r), r.PathValue("id"), r.URL.Query().Get("category"), start, end)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, transactions)
}
