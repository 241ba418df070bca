package interfaces

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
	"github.com/finvault/FinVault/internal/identity"
	"github.com/finvault/FinVault/internal/logging"
)

const testUserID = "user-1"

type stubAccountRepo struct {
	accounts map[string]domain.Account
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]domain.Account)}
}

func (r *stubAccountRepo) Save(_ context.Context, account domain.Account) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *stubAccountRepo) FindByUser(_ context.Context, userID string) ([]domain.Account, error) {
	var out []domain.Account
	for _, account := range r.accounts {
		if account.UserID == userID {
			out = append(out, account)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, accountID string) (*domain.Account, error) {
	account, ok := r.accounts[accountID]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &account, nil
}

func (r *stubAccountRepo) Update(_ context.Context, account domain.Account) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *stubAccountRepo) UpdateBalance(_ context.Context, accountID string, balance float64) error {
	account, ok := r.accounts[accountID]
	if !ok {
		return financeErrors.ErrNotFound
	}
	account.Balance = balance
	r.accounts[accountID] = account
	return nil
}

func (r *stubAccountRepo) Delete(_ context.Context, accountID string) error {
	delete(r.accounts, accountID)
	return nil
}

type stubTransactionRepo struct {
	transactions map[string]domain.Transaction
	order        []string
}

func newStubTransactionRepo() *stubTransactionRepo {
	return &stubTransactionRepo{transactions: make(map[string]domain.Transaction)}
}

func (r *stubTransactionRepo) Save(_ context.Context, tx domain.Transaction) error {
	r.transactions[tx.ID] = tx
	r.order = append(r.order, tx.ID)
	return nil
}

func (r *stubTransactionRepo) FindByID(_ context.Context, id string) (*domain.Transaction, error) {
	tx, ok := r.transactions[id]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &tx, nil
}

func (r *stubTransactionRepo) FindByIDs(_ context.Context, userID string, ids []string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, id := range ids {
		if tx, ok := r.transactions[id]; ok && tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *stubTransactionRepo) FindByAccount(_ context.Context, accountID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, id := range r.order {
		tx := r.transactions[id]
		if tx.AccountID != nil && *tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *stubTransactionRepo) FindByFilter(_ context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	var out []domain.Transaction
	for _, id := range r.order {
		tx := r.transactions[id]
		if tx.UserID != userID {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		out = append(out, tx)
	}
	return out, len(out), nil
}

func (r *stubTransactionRepo) FindRecent(_ context.Context, _ string, _ int) ([]domain.Transaction, error) {
	return nil, nil
}

func (r *stubTransactionRepo) FindExpensesInRange(_ context.Context, _, _ string, _, _ time.Time) ([]domain.Transaction, error) {
	return nil, nil
}

func (r *stubTransactionRepo) FindRecurringTemplates(_ context.Context) ([]domain.Transaction, error) {
	return nil, nil
}

func (r *stubTransactionRepo) Update(_ context.Context, tx domain.Transaction) error {
	r.transactions[tx.ID] = tx
	return nil
}

func (r *stubTransactionRepo) UpdateCategoryAndTags(_ context.Context, _ string, _ []string, _ *string, _ []string) error {
	return nil
}

func (r *stubTransactionRepo) UpdateLastGenerated(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (r *stubTransactionRepo) Delete(_ context.Context, id string) error {
	delete(r.transactions, id)
	return nil
}

func (r *stubTransactionRepo) DeleteByIDs(_ context.Context, _ string, ids []string) error {
	for _, id := range ids {
		delete(r.transactions, id)
	}
	return nil
}

func (r *stubTransactionRepo) DeleteByAccount(_ context.Context, accountID string) error {
	for id, tx := range r.transactions {
		if tx.AccountID != nil && *tx.AccountID == accountID {
			delete(r.transactions, id)
		}
	}
	return nil
}

func (r *stubTransactionRepo) CountByAccount(_ context.Context, accountID string) (int, error) {
	count := 0
	for _, tx := range r.transactions {
		if tx.AccountID != nil && *tx.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

type passthroughConverter struct{}

func (passthroughConverter) ToUSD(_ context.Context, amount float64, _ string) (float64, error) {
	return amount, nil
}

type handlerFixture struct {
	server  *httptest.Server
	accRepo *stubAccountRepo
	txRepo  *stubTransactionRepo
}

// testAuth stands in for the JWT middleware and injects a fixed user.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(identity.ContextWithUserID(r.Context(), testUserID)))
	})
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	logger := logging.Discard()
	accRepo := newStubAccountRepo()
	txRepo := newStubTransactionRepo()
	accounts := application.NewAccountService(accRepo, txRepo, logger)
	transactions := application.NewTransactionService(txRepo, accounts, passthroughConverter{}, logger)

	mux := http.NewServeMux()
	Handlers{
		Accounts:     NewAccountHandler(accounts, logger),
		Transactions: NewTransactionHandler(transactions, logger),
	}.registerLedgerRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &handlerFixture{server: server, accRepo: accRepo, txRepo: txRepo}
}

// registerLedgerRoutes mounts just the account and transaction routes so the
// fixture does not need every service.
func (h Handlers) registerLedgerRoutes(mux *http.ServeMux) {
	register := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, testAuth(handler))
	}
	register("POST /api/accounts", h.Accounts.Create)
	register("GET /api/accounts", h.Accounts.List)
	register("PUT /api/accounts/{id}", h.Accounts.Update)
	register("DELETE /api/accounts/{id}", h.Accounts.Delete)
	register("POST /api/transactions", h.Transactions.Create)
	register("GET /api/transactions", h.Transactions.List)
	register("GET /api/transactions/export", h.Transactions.Export)
	register("GET /api/transactions/{id}", h.Transactions.Get)
	register("DELETE /api/transactions/{id}", h.Transactions.Delete)
}

type envelope struct {
	Status     string          `json:"status"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *pagination     `json:"pagination"`
}

func do(t *testing.T, method, url, body string) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func TestCreateAndListAccounts(t *testing.T) {
	f := newHandlerFixture(t)

	resp, env := do(t, http.MethodPost, f.server.URL+"/api/accounts",
		`{"name":"Checking","type":"checking","balance":100.504}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "success", env.Status)

	var created domain.Account
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 100.50, created.Balance, "balance is rounded on the way in")
	assert.Equal(t, "USD", created.Currency)

	resp, env = do(t, http.MethodGet, f.server.URL+"/api/accounts", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var accounts []domain.Account
	require.NoError(t, json.Unmarshal(env.Data, &accounts))
	assert.Len(t, accounts, 1)
}

func TestCreateAccountRejectsInvalidType(t *testing.T) {
	f := newHandlerFixture(t)

	resp, env := do(t, http.MethodPost, f.server.URL+"/api/accounts",
		`{"name":"X","type":"offshore"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "Invalid account type", env.Message)
}

func TestUpdateUnknownAccountIs404(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := do(t, http.MethodPut, f.server.URL+"/api/accounts/missing", `{"name":"New"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestForeignAccountIs403(t *testing.T) {
	f := newHandlerFixture(t)
	f.accRepo.accounts["acc-2"] = domain.Account{ID: "acc-2", UserID: "someone-else", Name: "Hidden", Type: "cash"}

	resp, _ := do(t, http.MethodPut, f.server.URL+"/api/accounts/acc-2", `{"name":"Mine now"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeleteAccountConflictsWithLedger(t *testing.T) {
	f := newHandlerFixture(t)

	_, env := do(t, http.MethodPost, f.server.URL+"/api/accounts",
		`{"name":"Checking","type":"checking"}`)
	var account domain.Account
	require.NoError(t, json.Unmarshal(env.Data, &account))

	resp, _ := do(t, http.MethodPost, f.server.URL+"/api/transactions",
		`{"account":"`+account.ID+`","type":"expense","amount":25,"category":"Coffee","date":"2026-02-10"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, f.server.URL+"/api/accounts/"+account.ID, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, f.server.URL+"/api/accounts/"+account.ID+"?cascade=true", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, f.txRepo.transactions, "cascade removes the linked transactions")
}

func TestCreateTransactionRecomputesBalance(t *testing.T) {
	f := newHandlerFixture(t)

	_, env := do(t, http.MethodPost, f.server.URL+"/api/accounts",
		`{"name":"Checking","type":"checking"}`)
	var account domain.Account
	require.NoError(t, json.Unmarshal(env.Data, &account))

	resp, env := do(t, http.MethodPost, f.server.URL+"/api/transactions",
		`{"account":"`+account.ID+`","type":"income","amount":1500,"category":"Salary","date":"2026-02-01"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Transaction
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), created.Date)

	assert.Equal(t, 1500.0, f.accRepo.accounts[account.ID].Balance)
}

func TestCreateTransactionRejectsBadDate(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := do(t, http.MethodPost, f.server.URL+"/api/transactions",
		`{"type":"expense","amount":10,"category":"Misc","date":"10/02/2026"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListTransactionsPaginationEnvelope(t *testing.T) {
	f := newHandlerFixture(t)

	for i := 0; i < 3; i++ {
		resp, _ := do(t, http.MethodPost, f.server.URL+"/api/transactions",
			`{"type":"expense","amount":10,"category":"Misc"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, env := do(t, http.MethodGet, f.server.URL+"/api/transactions?limit=2", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.Total)
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, 2, env.Pagination.Limit)
}

func TestTransactionExportIsCSV(t *testing.T) {
	f := newHandlerFixture(t)

	resp, _ := do(t, http.MethodPost, f.server.URL+"/api/transactions",
		`{"type":"expense","amount":42.5,"category":"Groceries","date":"2026-03-14"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	res, err := http.Get(f.server.URL + "/api/transactions/export")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/csv", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "transactions_")

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Groceries")
	assert.Contains(t, string(body), "42.50")
}

func TestDeleteForeignTransactionIs404(t *testing.T) {
	f := newHandlerFixture(t)
	f.txRepo.transactions["tx-x"] = domain.Transaction{ID: "tx-x", UserID: "someone-else", Type: "expense", Amount: 5, Category: "Misc"}
	f.txRepo.order = append(f.txRepo.order, "tx-x")

	resp, _ := do(t, http.MethodDelete, f.server.URL+"/api/transactions/tx-x", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
