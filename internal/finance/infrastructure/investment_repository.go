package infrastructure

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finvault/FinVault/internal/finance/domain"
	financeErrors "github.com/finvault/FinVault/internal/finance/errors"
)

const investmentColumns = `id, user_id, name, type, initial_investment, current_value, currency, institution, purchase_date, notes, created_at, updated_at`

type InvestmentRepository struct {
	db *sql.DB
}

func NewInvestmentRepository(db *sql.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) Save(ctx context.Context, investment domain.Investment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (id, user_id, name, type, initial_investment, current_value, currency, institution, purchase_date, notes)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		investment.ID, investment.UserID, investment.Name, investment.Type, investment.InitialInvestment,
		investment.CurrentValue, investment.Currency, investment.Institution, investment.PurchaseDate, investment.Notes,
	)
	return err
}

func (r *InvestmentRepository) FindByUser(ctx context.Context, userID string, limit, page int) ([]domain.Investment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM investments WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE user_id = $1
         ORDER BY purchase_date DESC LIMIT $2 OFFSET $3`,
		userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	investments, err := scanInvestments(rows)
	if err != nil {
		return nil, 0, err
	}
	return investments, total, nil
}

func (r *InvestmentRepository) FindAllByUser(ctx context.Context, userID string) ([]domain.Investment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE user_id = $1 ORDER BY purchase_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvestments(rows)
}

func (r *InvestmentRepository) FindByID(ctx context.Context, investmentID string) (*domain.Investment, error) {
	investment, err := scanInvestment(r.db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = $1`, investmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, financeErrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return investment, nil
}

func (r *InvestmentRepository) Update(ctx context.Context, investment domain.Investment) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE investments SET name = $1, type = $2, initial_investment = $3, current_value = $4,
            currency = $5, institution = $6, purchase_date = $7, notes = $8, updated_at = now()
         WHERE id = $9`,
		investment.Name, investment.Type, investment.InitialInvestment, investment.CurrentValue,
		investment.Currency, investment.Institution, investment.PurchaseDate, investment.Notes, investment.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *InvestmentRepository) Delete(ctx context.Context, investmentID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM investments WHERE id = $1`, investmentID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func scanInvestment(row rowScanner) (*domain.Investment, error) {
	var investment domain.Investment
	err := row.Scan(&investment.ID, &investment.UserID, &investment.Name, &investment.Type,
		&investment.InitialInvestment, &investment.CurrentValue, &investment.Currency,
		&investment.Institution, &investment.PurchaseDate, &investment.Notes,
		&investment.CreatedAt, &investment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

func scanInvestments(rows *sql.Rows) ([]domain.Investment, error) {
	var investments []domain.Investment
	for rows.Next() {
		investment, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, *investment)
	}
	return investments, rows.Err()
}
