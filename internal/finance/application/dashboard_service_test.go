package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/logging"
)

func TestDashboardSummary(t *testing.T) {
	now := time.Date(2026, 4, 18, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	accountRepo := newMockAccountRepo()
	transactionRepo := newMockTransactionRepo()
	goalRepo := newMockGoalRepo()
	debtRepo := newMockDebtRepo()
	investmentRepo := newMockInvestmentRepo()

	budgets := NewBudgetService(newMockBudgetRepo(), transactionRepo, logging.Discard())
	budgets.now = func() time.Time { return now }

	service := NewDashboardService(accountRepo, transactionRepo, goalRepo, debtRepo, investmentRepo, budgets, logging.Discard())
	service.now = func() time.Time { return now }

	for _, a := range []domain.Account{
		{ID: "a1", UserID: "u1", Name: "Checking", Type: "checking", Balance: 1200},
		{ID: "a2", UserID: "u1", Name: "Savings", Type: "savings", Balance: 5000},
		{ID: "a3", UserID: "u1", Name: "Cash", Type: "cash", Balance: 80},
		{ID: "a4", UserID: "u1", Name: "Travel", Type: "savings", Balance: 300},
	} {
		require.NoError(t, accountRepo.Save(ctx, a))
	}

	for _, tx := range []domain.Transaction{
		{ID: "t1", UserID: "u1", Type: domain.TransactionTypeExpense, Category: "Groceries", Amount: 90, Date: time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "t2", UserID: "u1", Type: domain.TransactionTypeExpense, Category: "Rent", Amount: 800, Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "t3", UserID: "u1", Type: domain.TransactionTypeExpense, Category: "Rent", Amount: 800, Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "t4", UserID: "u1", Type: domain.TransactionTypeIncome, Category: "Salary", Amount: 3000, Date: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	} {
		require.NoError(t, transactionRepo.Save(ctx, tx))
	}

	for _, g := range []domain.Goal{
		{ID: "g1", UserID: "u1", Title: "Fund", Status: domain.GoalStatusInProgress, TargetAmount: 100, Deadline: now.AddDate(1, 0, 0)},
		{ID: "g2", UserID: "u1", Title: "Done", Status: domain.GoalStatusCompleted, TargetAmount: 100, Deadline: now.AddDate(1, 0, 0)},
	} {
		require.NoError(t, goalRepo.Save(ctx, g))
	}

	pastDue := now.AddDate(0, 0, -5)
	soonDue := now.AddDate(0, 0, 10)
	laterDue := now.AddDate(0, 1, 0)
	for _, d := range []domain.Debt{
		{ID: "d1", UserID: "u1", Description: "Old", Balance: 200, DueDate: pastDue},
		{ID: "d2", UserID: "u1", Description: "Soon", Balance: 300, DueDate: soonDue},
		{ID: "d3", UserID: "u1", Description: "Later", Balance: 500, DueDate: laterDue},
	} {
		require.NoError(t, debtRepo.Save(ctx, d))
	}

	for _, inv := range []domain.Investment{
		{ID: "i1", UserID: "u1", Name: "ETF", Type: "etf", InitialInvestment: 1000, CurrentValue: 1250, Currency: "USD", PurchaseDate: now.AddDate(-1, 0, 0)},
		{ID: "i2", UserID: "u1", Name: "Bond", Type: "bond", InitialInvestment: 500, CurrentValue: 480, Currency: "USD", PurchaseDate: now.AddDate(-1, 0, 0)},
	} {
		require.NoError(t, investmentRepo.Save(ctx, inv))
	}

	summary, err := service.Summary(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 6580.0, summary.Accounts.TotalBalance)
	require.Len(t, summary.Accounts.TopAccounts, 3)
	assert.Equal(t, "Savings", summary.Accounts.TopAccounts[0].Name)

	// Only the April expenses count toward the month's spend.
	assert.Equal(t, 890.0, summary.Transactions.TotalSpentThisMonth)

	require.Len(t, summary.Goals.ActiveGoals, 1)
	assert.Equal(t, "Fund", summary.Goals.ActiveGoals[0].Title)

	assert.Equal(t, 1000.0, summary.Debts.TotalDebt)
	require.NotNil(t, summary.Debts.NextDueDate)
	assert.True(t, summary.Debts.NextDueDate.Equal(soonDue))

	assert.Equal(t, 1730.0, summary.Investments.TotalValue)
	require.Len(t, summary.Investments.TopInvestments, 2)
	assert.Equal(t, "ETF", summary.Investments.TopInvestments[0].Name)
	assert.Equal(t, 25.0, summary.Investments.TopInvestments[0].ReturnPercentage)
}

func TestDashboardOverBudgetFlag(t *testing.T) {
	now := time.Date(2026, 4, 18, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	transactionRepo := newMockTransactionRepo()
	budgetRepo := newMockBudgetRepo()
	budgets := NewBudgetService(budgetRepo, transactionRepo, logging.Discard())
	budgets.now = func() time.Time { return now }

	service := NewDashboardService(newMockAccountRepo(), transactionRepo, newMockGoalRepo(), newMockDebtRepo(), newMockInvestmentRepo(), budgets, logging.Discard())
	service.now = func() time.Time { return now }

	require.NoError(t, budgetRepo.Save(ctx, domain.Budget{
		ID: "b1", UserID: "u1", Category: "Groceries", Amount: 100, Period: domain.PeriodMonthly, AlertThreshold: 90,
	}))
	require.NoError(t, transactionRepo.Save(ctx, domain.Transaction{
		ID: "t1", UserID: "u1", Type: domain.TransactionTypeExpense, Category: "Groceries", Amount: 150,
		Date: time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
	}))

	summary, err := service.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, summary.Budgets.OverBudget)
}
