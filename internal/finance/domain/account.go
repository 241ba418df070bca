package domain

import (
	"context"
	"time"

	"github.com/finvault/FinVault/internal/finance/errors"
)

var validAccountTypes = map[string]bool{
	"checking":    true,
	"savings":     true,
	"credit-card": true,
	"investment":  true,
	"loan":        true,
	"cash":        true,
}

// Account is a container for transactions. Balance is a denormalized cache:
// it must equal the signed sum of the account's transactions and is rewritten
// by the ledger recompute after every transaction mutation.
type Account struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Balance     float64   `json:"balance"`
	Currency    string    `json:"currency"`
	Institution string    `json:"institution,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (a *Account) Validate() error {
	if a.Name == "" {
		return errors.NewValidationError("Account name is required")
	}
	if len(a.Name) > 100 {
		return errors.NewValidationError("Account name cannot exceed 100 characters")
	}
	if !validAccountTypes[a.Type] {
		return errors.NewValidationError("Invalid account type")
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	if len(a.Notes) > 500 {
		return errors.NewValidationError("Notes cannot exceed 500 characters")
	}
	return nil
}

// AccountPatch carries optional replacement values for an update. Balance is
// deliberately absent: it is derived from the ledger, never written directly.
type AccountPatch struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Currency    *string `json:"currency"`
	Institution *string `json:"institution"`
	Notes       *string `json:"notes"`
}

// Merge applies the patch onto the existing account. Patch fields win when
// present, existing values are kept otherwise.
func (a Account) Merge(p AccountPatch) Account {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Currency != nil {
		a.Currency = *p.Currency
	}
	if p.Institution != nil {
		a.Institution = *p.Institution
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	return a
}

type AccountRepository interface {
	Save(ctx context.Context, account Account) error
	FindByUser(ctx context.Context, userID string) ([]Account, error)
	FindByID(ctx context.Context, accountID string) (*Account, error)
	Update(ctx context.Context, account Account) error
	UpdateBalance(ctx context.Context, accountID string, balance float64) error
	Delete(ctx context.Context, accountID string) error
}
