package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Save(ctx context.Context, account domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, balance, currency, institution, notes)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.UserID, account.Name, account.Type, account.Balance,
		account.Currency, account.Institution, account.Notes,
	)
	return err
}

func (r *AccountRepository) FindByUser(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, balance, currency, COALESCE(institution, ''), COALESCE(notes, ''), created_at, updated_at
         FROM accounts WHERE user_id = $1 ORDER BY name LIMIT 100`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Type, &account.Balance,
			&account.Currency, &account.Institution, &account.Notes, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) FindByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, balance, currency, COALESCE(institution, ''), COALESCE(notes, ''), created_at, updated_at
         FROM accounts WHERE id = $1`, accountID).
		Scan(&account.ID, &account.UserID, &account.Name, &account.Type, &account.Balance,
			&account.Currency, &account.Institution, &account.Notes, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Update(ctx context.Context, account domain.Account) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = $1, type = $2, currency = $3, institution = $4, notes = $5, updated_at = now()
         WHERE id = $6`,
		account.Name, account.Type, account.Currency, account.Institution, account.Notes, account.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, accountID string, balance float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = now() WHERE id = $2`, balance, accountID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *AccountRepository) Delete(ctx context.Context, accountID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// requireRow maps a zero-row write onto the not-found error.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return financeErrors.ErrNotFound
	}
	return nil
}
