package interfaces

import "net/http"

// Handlers bundles the finance HTTP handlers for route registration.
type Handlers struct {
	Accounts     *AccountHandler
	Transactions *TransactionHandler
	Budgets      *BudgetHandler
	Debts        *DebtHandler
	Goals        *GoalHandler
	Investments  *InvestmentHandler
	Dashboard    *DashboardHandler
}

// RegisterRoutes mounts every finance endpoint behind the given auth
// middleware.
func (h Handlers) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	register := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, auth(handler))
	}

	register("POST /api/accounts", h.Accounts.Create)
	register("GET /api/accounts", h.Accounts.List)
	register("PUT /api/accounts/{id}", h.Accounts.Update)
	register("DELETE /api/accounts/{id}", h.Accounts.Delete)
	register("GET /api/accounts/{id}/transactions", h.Accounts.Transactions)

	register("POST /api/transactions", h.Transactions.Create)
	register("GET /api/transactions", h.Transactions.List)
	register("GET /api/transactions/export", h.Transactions.Export)
	register("POST /api/transactions/bulk", h.Transactions.Bulk)
	register("GET /api/transactions/{id}", h.Transactions.Get)
	register("PUT /api/transactions/{id}", h.Transactions.Update)
	register("DELETE /api/transactions/{id}", h.Transactions.Delete)

	register("POST /api/budgets", h.Budgets.Create)
	register("GET /api/budgets", h.Budgets.List)
	register("GET /api/budgets/status", h.Budgets.Status)
	register("GET /api/budgets/insights", h.Budgets.Insights)
	register("GET /api/budgets/{id}", h.Budgets.Get)
	register("PUT /api/budgets/{id}", h.Budgets.Update)
	register("DELETE /api/budgets/{id}", h.Budgets.Delete)

	register("POST /api/debts", h.Debts.Create)
	register("GET /api/debts", h.Debts.List)
	register("GET /api/debts/strategies", h.Debts.Strategies)
	register("GET /api/debts/export", h.Debts.Export)
	register("GET /api/debts/{id}", h.Debts.Get)
	register("PUT /api/debts/{id}", h.Debts.Update)
	register("DELETE /api/debts/{id}", h.Debts.Delete)
	register("POST /api/debts/{id}/payments", h.Debts.RecordPayment)

	register("POST /api/goals", h.Goals.Create)
	register("GET /api/goals", h.Goals.List)
	register("GET /api/goals/notifications", h.Goals.Notifications)
	register("GET /api/goals/{id}", h.Goals.Get)
	register("PUT /api/goals/{id}", h.Goals.Update)
	register("DELETE /api/goals/{id}", h.Goals.Delete)
	register("PUT /api/goals/{id}/progress", h.Goals.UpdateProgress)
	register("POST /api/goals/{id}/complete", h.Goals.Complete)

	register("POST /api/investments", h.Investments.Create)
	register("GET /api/investments", h.Investments.List)
	register("GET /api/investments/{id}", h.Investments.Get)
	register("PUT /api/investments/{id}", h.Investments.Update)
	register("DELETE /api/investments/{id}", h.Investments.Delete)

	register("GET /api/dashboard/summary", h.Dashboard.Summary)
}
