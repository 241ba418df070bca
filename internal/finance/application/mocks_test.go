package application

import (
	"context"
	"strings"
	"time"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
)

// In-memory repositories backing the service tests. They honor the same
// contracts as the Postgres implementations: not-found mapping, ownership
// scoping in bulk operations, atomicity of the compound writes.

type mockAccountRepo struct {
	accounts map[string]domain.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: map[string]domain.Account{}}
}

func (m *mockAccountRepo) Save(_ context.Context, account domain.Account) error {
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepo) FindByUser(_ context.Context, userID string) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, accountID string) (*domain.Account, error) {
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &account, nil
}

func (m *mockAccountRepo) Update(_ context.Context, account domain.Account) error {
	if _, ok := m.accounts[account.ID]; !ok {
		return financeErrors.ErrNotFound
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepo) UpdateBalance(_ context.Context, accountID string, balance float64) error {
	account, ok := m.accounts[accountID]
	if !ok {
		return financeErrors.ErrNotFound
	}
	account.Balance = balance
	m.accounts[accountID] = account
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, accountID string) error {
	if _, ok := m.accounts[accountID]; !ok {
		return financeErrors.ErrNotFound
	}
	delete(m.accounts, accountID)
	return nil
}

type mockTransactionRepo struct {
	transactions map[string]domain.Transaction
	order        []string
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{transactions: map[string]domain.Transaction{}}
}

func (m *mockTransactionRepo) Save(_ context.Context, transaction domain.Transaction) error {
	if _, ok := m.transactions[transaction.ID]; !ok {
		m.order = append(m.order, transaction.ID)
	}
	m.transactions[transaction.ID] = transaction
	return nil
}

func (m *mockTransactionRepo) all() []domain.Transaction {
	out := make([]domain.Transaction, 0, len(m.order))
	for _, id := range m.order {
		if tx, ok := m.transactions[id]; ok {
			out = append(out, tx)
		}
	}
	return out
}

func (m *mockTransactionRepo) FindByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	tx, ok := m.transactions[transactionID]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &tx, nil
}

func (m *mockTransactionRepo) FindByIDs(_ context.Context, userID string, transactionIDs []string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, id := range transactionIDs {
		if tx, ok := m.transactions[id]; ok && tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockTransactionRepo) FindByAccount(_ context.Context, accountID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.all() {
		if tx.AccountID != nil && *tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockTransactionRepo) FindByFilter(_ context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	var matched []domain.Transaction
	for _, tx := range m.all() {
		if tx.UserID != userID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		if filter.StartDate != nil && tx.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && tx.Date.After(*filter.EndDate) {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(tx.Notes), strings.ToLower(filter.Query)) {
			continue
		}
		matched = append(matched, tx)
	}
	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *mockTransactionRepo) FindRecent(_ context.Context, userID string, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.all() {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *mockTransactionRepo) FindExpensesInRange(_ context.Context, userID, category string, start, end time.Time) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.all() {
		if tx.UserID != userID || tx.Type != domain.TransactionTypeExpense {
			continue
		}
		if category != "" && tx.Category != category {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *mockTransactionRepo) FindRecurringTemplates(_ context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.all() {
		if tx.Recurrence != domain.RecurrenceNone {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockTransactionRepo) Update(_ context.Context, transaction domain.Transaction) error {
	if _, ok := m.transactions[transaction.ID]; !ok {
		return financeErrors.ErrNotFound
	}
	m.transactions[transaction.ID] = transaction
	return nil
}

func (m *mockTransactionRepo) UpdateCategoryAndTags(_ context.Context, userID string, transactionIDs []string, category *string, tags []string) error {
	for _, id := range transactionIDs {
		tx, ok := m.transactions[id]
		if !ok || tx.UserID != userID {
			continue
		}
		if category != nil {
			tx.Category = *category
		}
		if tags != nil {
			tx.Tags = tags
		}
		m.transactions[id] = tx
	}
	return nil
}

func (m *mockTransactionRepo) UpdateLastGenerated(_ context.Context, transactionID string, generatedAt time.Time) error {
	tx, ok := m.transactions[transactionID]
	if !ok {
		return financeErrors.ErrNotFound
	}
	tx.LastGeneratedAt = &generatedAt
	m.transactions[transactionID] = tx
	return nil
}

func (m *mockTransactionRepo) Delete(_ context.Context, transactionID string) error {
	if _, ok := m.transactions[transactionID]; !ok {
		return financeErrors.ErrNotFound
	}
	delete(m.transactions, transactionID)
	return nil
}

func (m *mockTransactionRepo) DeleteByIDs(_ context.Context, userID string, transactionIDs []string) error {
	for _, id := range transactionIDs {
		if tx, ok := m.transactions[id]; ok && tx.UserID == userID {
			delete(m.transactions, id)
		}
	}
	return nil
}

func (m *mockTransactionRepo) DeleteByAccount(_ context.Context, accountID string) error {
	for id, tx := range m.transactions {
		if tx.AccountID != nil && *tx.AccountID == accountID {
			delete(m.transactions, id)
		}
	}
	return nil
}

func (m *mockTransactionRepo) CountByAccount(_ context.Context, accountID string) (int, error) {
	count := 0
	for _, tx := range m.transactions {
		if tx.AccountID != nil && *tx.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

type mockBudgetRepo struct {
	budgets map[string]domain.Budget
	order   []string
}

func newMockBudgetRepo() *mockBudgetRepo {
	return &mockBudgetRepo{budgets: map[string]domain.Budget{}}
}

func (m *mockBudgetRepo) Save(_ context.Context, budget domain.Budget) error {
	if _, ok := m.budgets[budget.ID]; !ok {
		m.order = append(m.order, budget.ID)
	}
	m.budgets[budget.ID] = budget
	return nil
}

func (m *mockBudgetRepo) all() []domain.Budget {
	out := make([]domain.Budget, 0, len(m.order))
	for _, id := range m.order {
		if b, ok := m.budgets[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (m *mockBudgetRepo) FindByUser(_ context.Context, userID string) ([]domain.Budget, error) {
	var out []domain.Budget
	for _, b := range m.all() {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBudgetRepo) FindByID(_ context.Context, budgetID string) (*domain.Budget, error) {
	budget, ok := m.budgets[budgetID]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &budget, nil
}

func (m *mockBudgetRepo) FindRecurring(_ context.Context) ([]domain.Budget, error) {
	var out []domain.Budget
	for _, b := range m.all() {
		if b.Recurrence != domain.RecurrenceNone {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBudgetRepo) Update(_ context.Context, budget domain.Budget) error {
	if _, ok := m.budgets[budget.ID]; !ok {
		return financeErrors.ErrNotFound
	}
	m.budgets[budget.ID] = budget
	return nil
}

func (m *mockBudgetRepo) SaveSuccessor(_ context.Context, predecessorID string, successor domain.Budget) error {
	predecessor, ok := m.budgets[predecessorID]
	if !ok {
		return financeErrors.ErrNotFound
	}
	if predecessor.SuccessorID != nil {
		return financeErrors.ErrConflict
	}
	m.budgets[successor.ID] = successor
	m.order = append(m.order, successor.ID)
	predecessor.SuccessorID = &successor.ID
	m.budgets[predecessorID] = predecessor
	return nil
}

func (m *mockBudgetRepo) Delete(_ context.Context, budgetID string) error {
	if _, ok := m.budgets[budgetID]; !ok {
		return financeErrors.ErrNotFound
	}
	delete(m.budgets, budgetID)
	return nil
}

type mockDebtRepo struct {
	debts   map[string]domain.Debt
	mirrors []domain.Transaction
}

func newMockDebtRepo() *mockDebtRepo {
	return &mockDebtRepo{debts: map[string]domain.Debt{}}
}

func (m *mockDebtRepo) Save(_ context.Context, debt domain.Debt) error {
	m.debts[debt.ID] = debt
	return nil
}

func (m *mockDebtRepo) FindByUser(_ context.Context, userID string) ([]domain.Debt, error) {
	var out []domain.Debt
	for _, d := range m.debts {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDebtRepo) FindByID(_ context.Context, debtID string) (*domain.Debt, error) {
	debt, ok := m.debts[debtID]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &debt, nil
}

func (m *mockDebtRepo) Update(_ context.Context, debt domain.Debt) error {
	if _, ok := m.debts[debt.ID]; !ok {
		return financeErrors.ErrNotFound
	}
	m.debts[debt.ID] = debt
	return nil
}

func (m *mockDebtRepo) Delete(_ context.Context, debtID string) error {
	if _, ok := m.debts[debtID]; !ok {
		return financeErrors.ErrNotFound
	}
	delete(m.debts, debtID)
	return nil
}

func (m *mockDebtRepo) RecordPayment(_ context.Context, debtID string, newBalance float64, payment domain.DebtPayment, mirror domain.Transaction) error {
	debt, ok := m.debts[debtID]
	if !ok {
		return financeErrors.ErrNotFound
	}
	debt.Balance = newBalance
	debt.PaymentHistory = append(debt.PaymentHistory, payment)
	m.debts[debtID] = debt
	m.mirrors = append(m.mirrors, mirror)
	return nil
}

type mockGoalRepo struct {
	goals map[string]domain.Goal
	order []string
}

func newMockGoalRepo() *mockGoalRepo {
	return &mockGoalRepo{goals: map[string]domain.Goal{}}
}

func (m *mockGoalRepo) Save(_ context.Context, goal domain.Goal) error {
	if _, ok := m.goals[goal.ID]; !ok {
		m.order = append(m.order, goal.ID)
	}
	m.goals[goal.ID] = goal
	return nil
}

func (m *mockGoalRepo) FindByUser(_ context.Context, userID string) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, id := range m.order {
		if g, ok := m.goals[id]; ok && g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGoalRepo) FindByUserAndStatus(_ context.Context, userID, status string, limit int) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, id := range m.order {
		g, ok := m.goals[id]
		if !ok || g.UserID != userID || g.Status != status {
			continue
		}
		out = append(out, g)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockGoalRepo) FindApproachingDeadlines(_ context.Context, from, to time.Time) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, id := range m.order {
		g, ok := m.goals[id]
		if !ok || g.Status != domain.GoalStatusInProgress || g.DeadlineNotifiedAt != nil {
			continue
		}
		if g.Deadline.Before(from) || g.Deadline.After(to) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (m *mockGoalRepo) MarkDeadlineNotified(_ context.Context, goalID string, at time.Time) error {
	goal, ok := m.goals[goalID]
	if !ok {
		return financeErrors.ErrNotFound
	}
	goal.DeadlineNotifiedAt = &at
	m.goals[goalID] = goal
	return nil
}

func (m *mockGoalRepo) FindByID(_ context.Context, goalID string) (*domain.Goal, error) {
	goal, ok := m.goals[goalID]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &goal, nil
}

func (m *mockGoalRepo) Update(_ context.Context, goal domain.Goal) error {
	if _, ok := m.goals[goal.ID]; !ok {
		return financeErrors.ErrNotFound
	}
	m.goals[goal.ID] = goal
	return nil
}

func (m *mockGoalRepo) Delete(_ context.Context, goalID string) error {
	if _, ok := m.goals[goalID]; !ok {
		return financeErrors.ErrNotFound
	}
	delete(m.goals, goalID)
	return nil
}

type mockInvestmentRepo struct {
	investments map[string]domain.Investment
	order       []string
}

func newMockInvestmentRepo() *mockInvestmentRepo {
	return &mockInvestmentRepo{investments: map[string]domain.Investment{}}
}

func (m *mockInvestmentRepo) Save(_ context.Context, investment domain.Investment) error {
	if _, ok := m.investments[investment.ID]; !ok {
		m.order = append(m.order, investment.ID)
	}
	m.investments[investment.ID] = investment
	return nil
}

func (m *mockInvestmentRepo) FindByUser(_ context.Context, userID string, limit, page int) ([]domain.Investment, int, error) {
	all, err := m.FindAllByUser(context.Background(), userID)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *mockInvestmentRepo) FindAllByUser(_ context.Context, userID string) ([]domain.Investment, error) {
	var out []domain.Investment
	for _, id := range m.order {
		if inv, ok := m.investments[id]; ok && inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvestmentRepo) FindByID(_ context.Context, investmentID string) (*domain.Investment, error) {
	investment, ok := m.investments[investmentID]
	if !ok {
		return nil, financeErrors.ErrNotFound
	}
	return &investment, nil
}

func (m *mockInvestmentRepo) Update(_ context.Context, investment domain.Investment) error {
	if _, ok := m.investments[investment.ID]; !ok {
		return financeErrors.ErrNotFound
	}
	m.investments[investment.ID] = investment
	return nil
}

func (m *mockInvestmentRepo) Delete(_ context.Context, investmentID string) error {
	if _, ok := m.investments[investmentID]; !ok {
		return financeErrors.ErrNotFound
	}
	delete(m.investments, investmentID)
	return nil
}

// identityConverter treats every currency as already being USD.
type identityConverter struct{}

func (identityConverter) ToUSD(_ context.Context, amount float64, _ string) (float64, error) {
	return amount, nil
}

// fixedRateConverter converts with a static per-currency rate table.
type fixedRateConverter struct {
	rates map[string]float64
}

func (c fixedRateConverter) ToUSD(_ context.Context, amount float64, fromCurrency string) (float64, error) {
	rate, ok := c.rates[fromCurrency]
	if !ok {
		rate = 1
	}
	return amount * rate, nil
}

type recordingNotifier struct {
	completed []string
	deadlines []string
}

func (n *recordingNotifier) GoalCompleted(_, title string) {
	n.completed = append(n.completed, title)
}

func (n *recordingNotifier) GoalDeadlineApproaching(_, title string, _ int) {
	n.deadlines = append(n.deadlines, title)
}
