package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
)

const budgetColumns = `id, user_id, category, amount, currency, period, custom_start, custom_end,
    recurrence, rollover, alert_threshold, cycle_anchor, successor_id, created_at, updated_at`

type BudgetRepository struct {
	db *sql.DB
}

func NewBudgetRepository(db *sql.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Save(ctx context.Context, budget domain.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets
         (id, user_id, category, amount, currency, period, custom_start, custom_end, recurrence, rollover, alert_threshold, cycle_anchor)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		budget.ID, budget.UserID, budget.Category, budget.Amount, budget.Currency, budget.Period,
		budget.CustomStart, budget.CustomEnd, budget.Recurrence, budget.Rollover, budget.AlertThreshold,
		budget.CycleAnchor,
	)
	return err
}

func (r *BudgetRepository) FindByUser(ctx context.Context, userID string) ([]domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 ORDER BY category`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBudgets(rows)
}

func (r *BudgetRepository) FindByID(ctx context.Context, budgetID string) (*domain.Budget, error) {
	budget, err := scanBudget(r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, budgetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// FindRecurring returns every recurring budget across all users. Budgets that
// already link to a successor are included; the sweep skips them itself.
func (r *BudgetRepository) FindRecurring(ctx context.Context) ([]domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE recurrence <> 'none' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBudgets(rows)
}

func (r *BudgetRepository) Update(ctx context.Context, budget domain.Budget) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category = $1, amount = $2, currency = $3, period = $4, custom_start = $5,
            custom_end = $6, recurrence = $7, rollover = $8, alert_threshold = $9, updated_at = now()
         WHERE id = $10`,
		budget.Category, budget.Amount, budget.Currency, budget.Period, budget.CustomStart,
		budget.CustomEnd, budget.Recurrence, budget.Rollover, budget.AlertThreshold, budget.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SaveSuccessor inserts the successor budget and stamps the predecessor's
// successor link in one SQL transaction. The WHERE successor_id IS NULL guard
// plus the unique constraint on successor_id make the rollover fire at most
// once even under concurrent sweeps.
func (r *BudgetRepository) SaveSuccessor(ctx context.Context, predecessorID string, successor domain.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO budgets
         (id, user_id, category, amount, currency, period, custom_start, custom_end, recurrence, rollover, alert_threshold, cycle_anchor)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		successor.ID, successor.UserID, successor.Category, successor.Amount, successor.Currency, successor.Period,
		successor.CustomStart, successor.CustomEnd, successor.Recurrence, successor.Rollover, successor.AlertThreshold,
		successor.CycleAnchor,
	); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE budgets SET successor_id = $1, updated_at = now() WHERE id = $2 AND successor_id IS NULL`,
		successor.ID, predecessorID)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		if errors.Is(err, financeErrors.ErrNotFound) {
			return financeErrors.ErrConflict
		}
		return err
	}
	return tx.Commit()
}

func (r *BudgetRepository) Delete(ctx context.Context, budgetID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, budgetID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func scanBudget(row rowScanner) (*domain.Budget, error) {
	var budget domain.Budget
	err := row.Scan(&budget.ID, &budget.UserID, &budget.Category, &budget.Amount, &budget.Currency,
		&budget.Period, &budget.CustomStart, &budget.CustomEnd, &budget.Recurrence, &budget.Rollover,
		&budget.AlertThreshold, &budget.CycleAnchor, &budget.SuccessorID, &budget.CreatedAt, &budget.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

func scanBudgets(rows *sql.Rows) ([]domain.Budget, error) {
	var budgets []domain.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *budget)
	}
	return budgets, rows.Err()
}
