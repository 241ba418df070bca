package application

import (
	"context"
	"sort"
	"time"

	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/finance/money"
	"github.com/finvault/FinVault/internal/logging"
)

// DashboardSummary is the one-shot read model composing every area of a
// user's finances. Recomputed from current store state on each request,
// never cached.
type DashboardSummary struct {
	Accounts     AccountsSummary     `json:"accounts"`
	Transactions TransactionsSummary `json:"transactions"`
	Budgets      BudgetsSummary      `json:"budgets"`
	Goals        GoalsSummary        `json:"goals"`
	Debts        DebtsSummary        `json:"debts"`
	Investments  InvestmentsSummary  `json:"investments"`
}

type AccountsSummary struct {
	TotalBalance float64          `json:"totalBalance"`
	TopAccounts  []domain.Account `json:"topAccounts"`
}

type TransactionsSummary struct {
	Recent              []domain.Transaction `json:"recent"`
	TotalSpentThisMonth float64              `json:"totalSpentThisMonth"`
}

type BudgetsSummary struct {
	Statuses   []BudgetStatus `json:"statuses"`
	OverBudget bool           `json:"overBudget"`
}

type GoalsSummary struct {
	ActiveGoals []domain.Goal `json:"activeGoals"`
}

type DebtsSummary struct {
	TotalDebt   float64    `json:"totalDebt"`
	NextDueDate *time.Time `json:"nextDueDate,omitempty"`
}

type InvestmentsSummary struct {
	TotalValue     float64                `json:"totalValue"`
	TopInvestments []InvestmentWithReturn `json:"topInvestments"`
}

type DashboardService struct {
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
	goalRepo        domain.GoalRepository
	debtRepo        domain.DebtRepository
	investmentRepo  domain.InvestmentRepository
	budgets         *BudgetService
	logger          *logging.Logger
	now             func() time.Time
}

func NewDashboardService(
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	goalRepo domain.GoalRepository,
	debtRepo domain.DebtRepository,
	investmentRepo domain.InvestmentRepository,
	budgets *BudgetService,
	logger *logging.Logger,
) *DashboardService {
	return &DashboardService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		goalRepo:        goalRepo,
		debtRepo:        debtRepo,
		investmentRepo:  investmentRepo,
		budgets:         budgets,
		logger:          logger.WithComponent("dashboard"),
		now:             time.Now,
	}
}

// Summary composes the full dashboard for one user.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*DashboardSummary, error) {
	accounts, err := s.accountsSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.transactionsSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	budgets, err := s.budgetsSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	goals, err := s.goalsSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	debts, err := s.debtsSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	investments, err := s.investmentsSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		Accounts:     *accounts,
		Transactions: *transactions,
		Budgets:      *budgets,
		Goals:        *goals,
		Debts:        *debts,
		Investments:  *investments,
	}, nil
}

func (s *DashboardService) accountsSummary(ctx context.Context, userID string) (*AccountsSummary, error) {
	accounts, err := s.accountRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	balances := make([]float64, len(accounts))
	for i, account := range accounts {
		balances[i] = account.Balance
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].Balance > accounts[j].Balance
	})
	top := accounts
	if len(top) > 3 {
		top = top[:3]
	}
	if top == nil {
		top = []domain.Account{}
	}

	return &AccountsSummary{TotalBalance: money.Sum(balances...), TopAccounts: top}, nil
}

func (s *DashboardService) transactionsSummary(ctx context.Context, userID string) (*TransactionsSummary, error) {
	recent, err := s.transactionRepo.FindRecent(ctx, userID, 5)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []domain.Transaction{}
	}

	now := s.now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	expenses, err := s.transactionRepo.FindExpensesInRange(ctx, userID, "", startOfMonth, now)
	if err != nil {
		return nil, err
	}
	amounts := make([]float64, len(expenses))
	for i, tx := range expenses {
		amounts[i] = tx.Amount
	}

	return &TransactionsSummary{Recent: recent, TotalSpentThisMonth: money.Sum(amounts...)}, nil
}

func (s *DashboardService) budgetsSummary(ctx context.Context, userID string) (*BudgetsSummary, error) {
	statuses, err := s.budgets.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	over := false
	for _, status := range statuses {
		if status.Spent > status.Budgeted {
			over = true
			break
		}
	}
	return &BudgetsSummary{Statuses: statuses, OverBudget: over}, nil
}

func (s *DashboardService) goalsSummary(ctx context.Context, userID string) (*GoalsSummary, error) {
	goals, err := s.goalRepo.FindByUserAndStatus(ctx, userID, domain.GoalStatusInProgress, 3)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []domain.Goal{}
	}
	return &GoalsSummary{ActiveGoals: goals}, nil
}

func (s *DashboardService) debtsSummary(ctx context.Context, userID string) (*DebtsSummary, error) {
	debts, err := s.debtRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	balances := make([]float64, len(debts))
	var nextDue *time.Time
	now := s.now()
	for i, debt := range debts {
		balances[i] = debt.Balance
		due := debt.DueDate
		if due.Before(now) {
			continue
		}
		if nextDue == nil || due.Before(*nextDue) {
			nextDue = &due
		}
	}

	return &DebtsSummary{TotalDebt: money.Sum(balances...), NextDueDate: nextDue}, nil
}

func (s *DashboardService) investmentsSummary(ctx context.Context, userID string) (*InvestmentsSummary, error) {
	investments, err := s.investmentRepo.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(investments))
	for i, investment := range investments {
		values[i] = investment.CurrentValue
	}
	sort.SliceStable(investments, func(i, j int) bool {
		return investments[i].CurrentValue > investments[j].CurrentValue
	})
	top := investments
	if len(top) > 3 {
		top = top[:3]
	}

	return &InvestmentsSummary{TotalValue: money.Sum(values...), TopInvestments: withReturns(top)}, nil
}
