package application

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
	"github.com/finvault/FinVault/internal/finance/money"
	"github.com/finvault/FinVault/internal/logging"
)

const debtRepaymentCategory = "Debt Repayment"

// StrategyDebt is a debt annotated with its repayment-strategy priority label.
type StrategyDebt struct {
	domain.Debt
	PaymentPriority string `json:"paymentPriority"`
}

// RepaymentStrategies holds both orderings side by side.
type RepaymentStrategies struct {
	Snowball  []StrategyDebt `json:"snowball"`
	Avalanche []StrategyDebt `json:"avalanche"`
}

type DebtService struct {
	repo   domain.DebtRepository
	logger *logging.Logger
}

func NewDebtService(repo domain.DebtRepository, logger *logging.Logger) *DebtService {
	return &DebtService{
		repo:   repo,
		logger: logger.WithComponent("debts"),
	}
}

func (s *DebtService) CreateDebt(ctx context.Context, debt *domain.Debt) error {
	debt.ID = uuid.NewString()
	debt.Balance = money.Round(debt.Balance)
	debt.InitialBalance = debt.Balance
	if err := debt.Validate(); err != nil {
		return err
	}
	return s.repo.Save(ctx, *debt)
}

func (s *DebtService) GetUserDebts(ctx context.Context, userID string) ([]domain.Debt, error) {
	debts, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if debts == nil {
		return []domain.Debt{}, nil
	}
	return debts, nil
}

func (s *DebtService) GetDebt(ctx context.Context, userID, debtID string) (*domain.Debt, error) {
	debt, err := s.repo.FindByID(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if debt.UserID != userID {
		return nil, financeErrors.ErrUnauthorized
	}
	return debt, nil
}

func (s *DebtService) UpdateDebt(ctx context.Context, userID, debtID string, patch domain.DebtPatch) (*domain.Debt, error) {
	debt, err := s.GetDebt(ctx, userID, debtID)
	if err != nil {
		return nil, err
	}
	merged := debt.Merge(patch)
	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *DebtService) DeleteDebt(ctx context.Context, userID, debtID string) error {
	debt, err := s.GetDebt(ctx, userID, debtID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, debt.ID)
}

// Strategies orders the user's debts for repayment planning. Snowball pays the
// lowest balance first, avalanche the highest interest rate first; ties keep
// insertion order. Pure read, no mutation.
func (s *DebtService) Strategies(ctx context.Context, userID string) (*RepaymentStrategies, error) {
	debts, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	strategies := &RepaymentStrategies{
		Snowball:  Snowball(debts),
		Avalanche: Avalanche(debts),
	}
	return strategies, nil
}

// Snowball returns debts ordered by ascending balance, annotated.
func Snowball(debts []domain.Debt) []StrategyDebt {
	ordered := make([]domain.Debt, len(debts))
	copy(ordered, debts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Balance < ordered[j].Balance
	})
	return annotate(ordered, "Low balance first")
}

// Avalanche returns debts ordered by descending interest rate, annotated.
func Avalanche(debts []domain.Debt) []StrategyDebt {
	ordered := make([]domain.Debt, len(debts))
	copy(ordered, debts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].InterestRate > ordered[j].InterestRate
	})
	return annotate(ordered, "High interest rate first")
}

func annotate(debts []domain.Debt, priority string) []StrategyDebt {
	annotated := make([]StrategyDebt, len(debts))
	for i, debt := range debts {
		annotated[i] = StrategyDebt{Debt: debt, PaymentPriority: priority}
	}
	return annotated
}

// RecordPayment decrements the debt balance, appends to the payment history
// and writes the mirrored expense transaction, all inside one SQL transaction:
// either every write lands or none does. The balance is allowed to go
// negative on overpayment; the caller sees the resulting value and can issue
// an explicit correction.
func (s *DebtService) RecordPayment(ctx context.Context, userID, debtID string, amount float64, date time.Time) (*domain.Debt, error) {
	if amount <= 0 {
		return nil, financeErrors.ErrInvalidPaymentAmount
	}
	debt, err := s.GetDebt(ctx, userID, debtID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = time.Now()
	}
	amount = money.Round(amount)

	mirror := domain.Transaction{
		ID:               uuid.NewString(),
		UserID:           userID,
		Type:             domain.TransactionTypeExpense,
		Amount:           amount,
		OriginalAmount:   amount,
		OriginalCurrency: "USD",
		Category:         debtRepaymentCategory,
		Date:             date,
		Notes:            "Payment for " + debt.Description,
		Recurrence:       domain.RecurrenceNone,
	}
	payment := domain.DebtPayment{
		ID:            uuid.NewString(),
		TransactionID: &mirror.ID,
		Amount:        amount,
		Date:          date,
	}
	newBalance := money.Sub(debt.Balance, amount)

	// One atomic unit: if any of the three writes fails, none is retained.
	if err := s.repo.RecordPayment(ctx, debt.ID, newBalance, payment, mirror); err != nil {
		return nil, financeErrors.NewDependencyError("record payment", err)
	}

	s.logger.Info("payment recorded", "debt_id", debt.ID, "amount", amount, "balance", newBalance)
	debt.Balance = newBalance
	debt.PaymentHistory = append(debt.PaymentHistory, payment)
	return debt, nil
}
