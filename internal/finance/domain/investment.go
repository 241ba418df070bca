package domain

import (
	"context"
	"time"

	"github.com/finvault/FinVault/internal/finance/errors"
)

// Investment is a holding valued against its purchase cost.
type Investment struct {
	ID                string    `json:"id"`
	UserID            string    `json:"-"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	InitialInvestment float64   `json:"initialInvestment"`
	CurrentValue      float64   `json:"currentValue"`
	Currency          string    `json:"currency"`
	Institution       string    `json:"institution,omitempty"`
	PurchaseDate      time.Time `json:"purchaseDate"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (i *Investment) Validate() error {
	if i.Name == "" {
		return errors.NewValidationError("Name is required")
	}
	if i.Type == "" {
		return errors.NewValidationError("Type is required")
	}
	if i.InitialInvestment <= 0 {
		return errors.NewValidationError("Initial investment must be greater than zero")
	}
	if i.CurrentValue < 0 {
		return errors.NewValidationError("Current value must not be negative")
	}
	if i.Currency == "" {
		return errors.NewValidationError("Currency is required")
	}
	if i.PurchaseDate.IsZero() {
		return errors.NewValidationError("Purchase date is required")
	}
	return nil
}

// ReturnPercentage is (currentValue - initialInvestment) / initialInvestment in percent.
func (i *Investment) ReturnPercentage() float64 {
	if i.InitialInvestment == 0 {
		return 0
	}
	return (i.CurrentValue - i.InitialInvestment) / i.InitialInvestment * 100
}

// InvestmentPatch carries optional replacement values for an update.
type InvestmentPatch struct {
	Name              *string    `json:"name"`
	Type              *string    `json:"type"`
	InitialInvestment *float64   `json:"initialInvestment"`
	CurrentValue      *float64   `json:"currentValue"`
	Currency          *string    `json:"currency"`
	Institution       *string    `json:"institution"`
	PurchaseDate      *time.Time `json:"purchaseDate"`
	Notes             *string    `json:"notes"`
}

// Merge applies the patch onto the existing investment.
func (i Investment) Merge(p InvestmentPatch) Investment {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Type != nil {
		i.Type = *p.Type
	}
	if p.InitialInvestment != nil {
		i.InitialInvestment = *p.InitialInvestment
	}
	if p.CurrentValue != nil {
		i.CurrentValue = *p.CurrentValue
	}
	if p.Currency != nil {
		i.Currency = *p.Currency
	}
	if p.Institution != nil {
		i.Institution = *p.Institution
	}
	if p.PurchaseDate != nil {
		i.PurchaseDate = *p.PurchaseDate
	}
	if p.Notes != nil {
		i.Notes = *p.Notes
	}
	return i
}

type InvestmentRepository interface {
	Save(ctx context.Context, investment Investment) error
	FindByUser(ctx context.Context, userID string, limit, page int) ([]Investment, int, error)
	FindAllByUser(ctx context.Context, userID string) ([]Investment, error)
	FindByID(ctx context.Context, investmentID string) (*Investment, error)
	Update(ctx context.Context, investment Investment) error
	Delete(ctx context.Context, investmentID string) error
}
