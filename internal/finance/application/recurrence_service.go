package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/FinVault/internal/finance/domain"
	"github.com/finvault/FinVault/internal/finance/money"
	"github.com/finvault/FinVault/internal/logging"
)

// RecurrenceService materializes due recurring work: copies of recurring
// transactions and successor cycles of recurring budgets. It exposes a single
// entry point so any scheduler (in-process cron, external cron, queue
// consumer) can drive it; the caller must guarantee non-overlapping runs.
type RecurrenceService struct {
	transactionRepo domain.TransactionRepository
	budgetRepo      domain.BudgetRepository
	accounts        BalanceRecomputer
	logger          *logging.Logger
}

func NewRecurrenceService(
	transactionRepo domain.TransactionRepository,
	budgetRepo domain.BudgetRepository,
	accounts BalanceRecomputer,
	logger *logging.Logger,
) *RecurrenceService {
	return &RecurrenceService{
		transactionRepo: transactionRepo,
		budgetRepo:      budgetRepo,
		accounts:        accounts,
		logger:          logger.WithComponent("recurrence"),
	}
}

// SweepResult reports what one RunDue pass materialized.
type SweepResult struct {
	TransactionsCreated int
	BudgetsRolled       int
}

// RunDue processes all due recurring transactions and ended recurring budget
// cycles as of now. Individual record failures are logged and skipped so one
// bad template cannot stall the rest of the sweep.
func (s *RecurrenceService) RunDue(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	created, err := s.sweepTransactions(ctx, now)
	if err != nil {
		return result, err
	}
	result.TransactionsCreated = created

	rolled, err := s.sweepBudgets(ctx, now)
	if err != nil {
		return result, err
	}
	result.BudgetsRolled = rolled

	s.logger.Info("recurrence sweep complete",
		"transactions_created", result.TransactionsCreated,
		"budgets_rolled", result.BudgetsRolled,
		"as_of", now.Format("2006-01-02"))
	return result, nil
}

func (s *RecurrenceService) sweepTransactions(ctx context.Context, now time.Time) (int, error) {
	templates, err := s.transactionRepo.FindRecurringTemplates(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, template := range templates {
		checker, err := GetDueChecker(template.Recurrence)
		if err != nil {
			s.logger.Error("skipping template with bad recurrence tag", "transaction_id", template.ID, "error", err)
			continue
		}
		if !checker.IsDue(template.LastGeneratedAt, now, template.Date) {
			continue
		}

		generated := template
		generated.ID = uuid.NewString()
		generated.Date = now
		generated.Recurrence = domain.RecurrenceNone
		generated.LastGeneratedAt = nil
		if err := s.transactionRepo.Save(ctx, generated); err != nil {
			s.logger.Error("failed to create transaction from template", "transaction_id", template.ID, "error", err)
			continue
		}

		// Watermark advances only after the copy exists, so a crash between
		// the two writes re-fires rather than skips.
		if err := s.transactionRepo.UpdateLastGenerated(ctx, template.ID, now); err != nil {
			s.logger.Error("failed to advance recurrence watermark", "transaction_id", template.ID, "error", err)
		}

		if generated.AccountID != nil {
			if _, err := s.accounts.RecomputeBalance(ctx, *generated.AccountID); err != nil {
				s.logger.Error("balance recompute after recurrence failed", "account_id", *generated.AccountID, "error", err)
			}
		}
		created++
	}
	return created, nil
}

func (s *RecurrenceService) sweepBudgets(ctx context.Context, now time.Time) (int, error) {
	budgets, err := s.budgetRepo.FindRecurring(ctx)
	if err != nil {
		return 0, err
	}

	rolled := 0
	for _, budget := range budgets {
		// A budget that already has a successor has rolled over; the
		// successor carries the recurrence forward.
		if budget.SuccessorID != nil {
			continue
		}

		period := ResolvePeriod(budget.CycleAnchor, budget.Period, budget.CustomStart, budget.CustomEnd)
		if !period.End.Before(now) {
			continue
		}

		successor, err := s.buildSuccessor(ctx, budget, period)
		if err != nil {
			s.logger.Error("failed to compute successor budget", "budget_id", budget.ID, "error", err)
			continue
		}
		if err := s.budgetRepo.SaveSuccessor(ctx, budget.ID, *successor); err != nil {
			s.logger.Error("failed to persist successor budget", "budget_id", budget.ID, "error", err)
			continue
		}
		rolled++
	}
	return rolled, nil
}

// buildSuccessor derives the next cycle: same category, period kind,
// recurrence, rollover and alert threshold; amount = base amount plus, when
// rollover is on, whatever of the previous limit went unspent (never a
// negative carry). The cycle anchor moves to the start of the next window so
// every generation resolves against the calendar, not against its
// predecessor's end instant.
func (s *RecurrenceService) buildSuccessor(ctx context.Context, budget domain.Budget, ended Period) (*domain.Budget, error) {
	amount := budget.Amount
	if budget.Rollover {
		expenses, err := s.transactionRepo.FindExpensesInRange(ctx, budget.UserID, budget.Category, ended.Start, ended.End)
		if err != nil {
			return nil, err
		}
		spentAmounts := make([]float64, len(expenses))
		for i, tx := range expenses {
			spentAmounts[i] = tx.Amount
		}
		remaining := money.Sub(budget.Amount, money.Sum(spentAmounts...))
		if remaining > 0 {
			amount = money.Sum(budget.Amount, remaining)
		}
	}

	next := NextPeriod(ended, budget.Period)
	successor := domain.Budget{
		ID:             uuid.NewString(),
		UserID:         budget.UserID,
		Category:       budget.Category,
		Amount:         amount,
		Currency:       budget.Currency,
		Period:         budget.Period,
		Recurrence:     budget.Recurrence,
		Rollover:       budget.Rollover,
		AlertThreshold: budget.AlertThreshold,
		CycleAnchor:    next.Start,
	}
	if budget.Period == domain.PeriodCustom {
		successor.CustomStart = &next.Start
		successor.CustomEnd = &next.End
	}
	return &successor, nil
}
