package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
	"github.com/finvault/FinVault/internal/finance/money"
	"github.com/finvault/FinVault/internal/logging"
)

// BudgetStatus is the per-budget spending report produced by the status engine.
type BudgetStatus struct {
	ID             string  `json:"id"`
	Category       string  `json:"category"`
	Budgeted       float64 `json:"budgeted"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	Percentage     float64 `json:"percentage"`
	AlertTriggered bool    `json:"alertTriggered"`
	Period         Period  `json:"period"`
	Recurrence     string  `json:"recurrence"`
}

// BudgetInsights is the chart-friendly shape of budgeted-vs-spent per category.
type BudgetInsights struct {
	Categories []string        `json:"categories"`
	Spending   []CategorySpend `json:"spending"`
}

type CategorySpend struct {
	Budgeted float64 `json:"budgeted"`
	Spent    float64 `json:"spent"`
}

type BudgetService struct {
	repo            domain.BudgetRepository
	transactionRepo domain.TransactionRepository
	logger          *logging.Logger
	now             func() time.Time
}

func NewBudgetService(repo domain.BudgetRepository, transactionRepo domain.TransactionRepository, logger *logging.Logger) *BudgetService {
	return &BudgetService{
		repo:            repo,
		transactionRepo: transactionRepo,
		logger:          logger.WithComponent("budgets"),
		now:             time.Now,
	}
}

func (s *BudgetService) CreateBudget(ctx context.Context, budget *domain.Budget) error {
	budget.ID = uuid.NewString()
	budget.CycleAnchor = s.now()
	if err := budget.Validate(); err != nil {
		return err
	}
	return s.repo.Save(ctx, *budget)
}

func (s *BudgetService) GetUserBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	budgets, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if budgets == nil {
		return []domain.Budget{}, nil
	}
	return budgets, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, userID, budgetID string) (*domain.Budget, error) {
	budget, err := s.repo.FindByID(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.UserID != userID {
		return nil, financeErrors.ErrUnauthorized
	}
	return budget, nil
}

func (s *BudgetService) UpdateBudget(ctx context.Context, userID, budgetID string, patch domain.BudgetPatch) (*domain.Budget, error) {
	budget, err := s.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	merged := budget.Merge(patch)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	budget, err := s.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, budget.ID)
}

// Status resolves each budget's period, joins the user's expense transactions
// of the matching category inside it and reports spent/remaining/percentage
// and the alert flag. One record per budget, no cross-budget aggregation.
func (s *BudgetService) Status(ctx context.Context, userID string) ([]BudgetStatus, error) {
	budgets, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	for _, budget := range budgets {
		status, err := s.statusFor(ctx, budget)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	return statuses, nil
}

func (s *BudgetService) statusFor(ctx context.Context, budget domain.Budget) (*BudgetStatus, error) {
	period := ResolvePeriod(s.now(), budget.Period, budget.CustomStart, budget.CustomEnd)

	expenses, err := s.transactionRepo.FindExpensesInRange(ctx, budget.UserID, budget.Category, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	amounts := make([]float64, len(expenses))
	for i, tx := range expenses {
		amounts[i] = tx.Amount
	}
	spent := money.Sum(amounts...)
	percentage := money.Percentage(spent, budget.Amount)

	return &BudgetStatus{
		ID:             budget.ID,
		Category:       budget.Category,
		Budgeted:       budget.Amount,
		Spent:          spent,
		Remaining:      money.Sub(budget.Amount, spent),
		Percentage:     percentage,
		AlertTriggered: percentage >= budget.AlertThreshold,
		Period:         period,
		Recurrence:     budget.Recurrence,
	}, nil
}

// Insights flattens budget statuses into the category/spending arrays the
// frontend charts consume.
func (s *BudgetService) Insights(ctx context.Context, userID string) (*BudgetInsights, error) {
	statuses, err := s.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	insights := &BudgetInsights{
		Categories: make([]string, 0, len(statuses)),
		Spending:   make([]CategorySpend, 0, len(statuses)),
	}
	for _, status := range statuses {
		insights.Categories = append(insights.Categories, status.Category)
		insights.Spending = append(insights.Spending, CategorySpend{Budgeted: status.Budgeted, Spent: status.Spent})
	}
	return insights, nil
}
