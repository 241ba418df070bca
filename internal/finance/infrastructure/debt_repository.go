package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
)

const debtColumns = `id, user_id, description, creditor, balance, initial_balance,
    interest_rate, minimum_payment, due_date, created_at, updated_at`

type DebtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

func (r *DebtRepository) Save(ctx context.Context, debt domain.Debt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO debts (id, user_id, description, creditor, balance, initial_balance, interest_rate, minimum_payment, due_date)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		debt.ID, debt.UserID, debt.Description, debt.Creditor, debt.Balance, debt.InitialBalance,
		debt.InterestRate, debt.MinimumPayment, debt.DueDate,
	)
	return err
}

func (r *DebtRepository) FindByUser(ctx context.Context, userID string) ([]domain.Debt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE user_id = $1 ORDER BY due_date`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debts []domain.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, *debt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range debts {
		history, err := r.paymentHistory(ctx, debts[i].ID)
		if err != nil {
			return nil, err
		}
		debts[i].PaymentHistory = history
	}
	return debts, nil
}

func (r *DebtRepository) FindByID(ctx context.Context, debtID string) (*domain.Debt, error) {
	debt, err := scanDebt(r.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE id = $1`, debtID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	history, err := r.paymentHistory(ctx, debt.ID)
	if err != nil {
		return nil, err
	}
	debt.PaymentHistory = history
	return debt, nil
}

func (r *DebtRepository) Update(ctx context.Context, debt domain.Debt) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE debts SET description = $1, creditor = $2, balance = $3, interest_rate = $4,
            minimum_payment = $5, due_date = $6, updated_at = now()
         WHERE id = $7`,
		debt.Description, debt.Creditor, debt.Balance, debt.InterestRate,
		debt.MinimumPayment, debt.DueDate, debt.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *DebtRepository) Delete(ctx context.Context, debtID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = $1`, debtID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// RecordPayment writes the mirrored expense transaction, the new balance and
// the history row inside one SQL transaction. The mirror goes first so the
// payment's transaction_id reference resolves.
func (r *DebtRepository) RecordPayment(ctx context.Context, debtID string, newBalance float64, payment domain.DebtPayment, mirror domain.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveTransaction(ctx, tx, mirror); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE debts SET balance = $1, updated_at = now() WHERE id = $2`, newBalance, debtID)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO debt_payments (id, debt_id, transaction_id, amount, date)
         VALUES ($1, $2, $3, $4, $5)`,
		payment.ID, debtID, payment.TransactionID, payment.Amount, payment.Date,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *DebtRepository) paymentHistory(ctx context.Context, debtID string) ([]domain.DebtPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, transaction_id, amount, date FROM debt_payments WHERE debt_id = $1 ORDER BY date`, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.DebtPayment
	for rows.Next() {
		var payment domain.DebtPayment
		if err := rows.Scan(&payment.ID, &payment.TransactionID, &payment.Amount, &payment.Date); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanDebt(row rowScanner) (*domain.Debt, error) {
	var debt domain.Debt
	err := row.Scan(&debt.ID, &debt.UserID, &debt.Description, &debt.Creditor, &debt.Balance,
		&debt.InitialBalance, &debt.InterestRate, &debt.MinimumPayment, &debt.DueDate,
		&debt.CreatedAt, &debt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &debt, nil
}
