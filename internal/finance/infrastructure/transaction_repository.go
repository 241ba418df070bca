package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
)

const transactionColumns = `id, user_id, account_id, type, COALESCE(sub_type, ''), amount, COALESCE(original_amount, amount),
    original_currency, category, date, COALESCE(notes, ''), tags, recurrence, last_generated_at, splits, created_at, updated_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Save(ctx context.Context, transaction domain.Transaction) error {
	return saveTransaction(ctx, r.db, transaction)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveTransaction(ctx context.Context, db execer, transaction domain.Transaction) error {
	tags, err := json.Marshal(orEmpty(transaction.Tags))
	if err != nil {
		return err
	}
	splits, err := json.Marshal(orEmptySplits(transaction.Splits))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO transactions
         (id, user_id, account_id, type, sub_type, amount, original_amount, original_currency, category, date, notes, tags, recurrence, last_generated_at, splits)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		transaction.ID, transaction.UserID, transaction.AccountID, transaction.Type, nullable(transaction.SubType),
		transaction.Amount, transaction.OriginalAmount, transaction.OriginalCurrency, transaction.Category,
		transaction.Date, transaction.Notes, tags, transaction.Recurrence, transaction.LastGeneratedAt, splits,
	)
	return err
}

func (r *TransactionRepository) FindByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, transactionID)
	transaction, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (r *TransactionRepository) FindByIDs(ctx context.Context, userID string, transactionIDs []string) ([]domain.Transaction, error) {
	if len(transactionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(transactionIDs))
	args := make([]any, 0, len(transactionIDs)+1)
	args = append(args, userID)
	for i, id := range transactionIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// FindByAccount returns the account's full transaction set. No cap: the
// ledger recompute needs every row, or the cached balance silently drifts.
func (r *TransactionRepository) FindByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 ORDER BY date DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *TransactionRepository) FindByFilter(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.StartDate != nil {
		add("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("date <= $%d", *filter.EndDate)
	}
	if filter.MinAmount != nil {
		add("amount >= $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount <= $%d", *filter.MaxAmount)
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(notes ILIKE $%d OR category ILIKE $%d OR tags::text ILIKE $%d)", n, n, n))
	}
	if len(filter.Tags) > 0 {
		tags, err := json.Marshal(filter.Tags)
		if err != nil {
			return nil, 0, err
		}
		add("tags @> $%d", tags)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+whereClause+
			fmt.Sprintf(` ORDER BY date DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *TransactionRepository) FindRecent(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY date DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// FindExpensesInRange returns the user's expense transactions inside the
// window, bounds inclusive. An empty category matches every category.
func (r *TransactionRepository) FindExpensesInRange(ctx context.Context, userID, category string, start, end time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
        WHERE user_id = $1 AND type = 'expense' AND date >= $2 AND date <= $3`
	args := []any{userID, start, end}
	if category != "" {
		query += ` AND category = $4`
		args = append(args, category)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// FindRecurringTemplates returns every transaction across all users whose
// recurrence tag marks it as a template for the sweep.
func (r *TransactionRepository) FindRecurringTemplates(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE recurrence <> 'none' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *TransactionRepository) Update(ctx context.Context, transaction domain.Transaction) error {
	tags, err := json.Marshal(orEmpty(transaction.Tags))
	if err != nil {
		return err
	}
	splits, err := json.Marshal(orEmptySplits(transaction.Splits))
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET account_id = $1, type = $2, sub_type = $3, amount = $4, original_amount = $5,
            original_currency = $6, category = $7, date = $8, notes = $9, tags = $10, recurrence = $11, splits = $12, updated_at = now()
         WHERE id = $13`,
		transaction.AccountID, transaction.Type, nullable(transaction.SubType), transaction.Amount, transaction.OriginalAmount,
		transaction.OriginalCurrency, transaction.Category, transaction.Date, transaction.Notes, tags,
		transaction.Recurrence, splits, transaction.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *TransactionRepository) UpdateCategoryAndTags(ctx context.Context, userID string, transactionIDs []string, category *string, tags []string) error {
	if len(transactionIDs) == 0 {
		return nil
	}
	set := []string{"updated_at = now()"}
	args := []any{userID}
	if category != nil {
		args = append(args, *category)
		set = append(set, fmt.Sprintf("category = $%d", len(args)))
	}
	if tags != nil {
		encoded, err := json.Marshal(tags)
		if err != nil {
			return err
		}
		args = append(args, encoded)
		set = append(set, fmt.Sprintf("tags = $%d", len(args)))
	}

	placeholders := make([]string, len(transactionIDs))
	for i, id := range transactionIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(set, ", ")+
			` WHERE user_id = $1 AND id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	return err
}

func (r *TransactionRepository) UpdateLastGenerated(ctx context.Context, transactionID string, generatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET last_generated_at = $1, updated_at = now() WHERE id = $2`, generatedAt, transactionID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *TransactionRepository) Delete(ctx context.Context, transactionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, transactionID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *TransactionRepository) DeleteByIDs(ctx context.Context, userID string, transactionIDs []string) error {
	if len(transactionIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(transactionIDs))
	args := make([]any, 0, len(transactionIDs)+1)
	args = append(args, userID)
	for i, id := range transactionIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = $1 AND id IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	return err
}

func (r *TransactionRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = $1`, accountID)
	return err
}

func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var tags, splits []byte
	err := row.Scan(&transaction.ID, &transaction.UserID, &transaction.AccountID, &transaction.Type, &transaction.SubType,
		&transaction.Amount, &transaction.OriginalAmount, &transaction.OriginalCurrency, &transaction.Category,
		&transaction.Date, &transaction.Notes, &tags, &transaction.Recurrence, &transaction.LastGeneratedAt,
		&splits, &transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &transaction.Tags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(splits, &transaction.Splits); err != nil {
		return nil, err
	}
	return &transaction, nil
}

func scanTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *transaction)
	}
	return transactions, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptySplits(s []domain.Split) []domain.Split {
	if s == nil {
		return []domain.Split{}
	}
	return s
}
