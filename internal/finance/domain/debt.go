package domain

import (
	"context"
	"time"

	"github.com/finvault/FinVault/internal/finance/errors"
)

// DebtPayment is one recorded repayment, mirrored by an expense transaction.
type DebtPayment struct {
	ID            string    `json:"id"`
	TransactionID *string   `json:"transactionId,omitempty"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
}

// Debt tracks an outstanding obligation. InitialBalance is fixed at creation
// and used for progress-paid calculations; Balance only decreases through
// recorded payments (overpayment may drive it negative, see RecordPayment).
type Debt struct {
	ID             string        `json:"id"`
	UserID         string        `json:"-"`
	Description    string        `json:"description"`
	Creditor       string        `json:"creditor"`
	Balance        float64       `json:"balance"`
	InitialBalance float64       `json:"initialBalance"`
	InterestRate   float64       `json:"interestRate"`
	MinimumPayment float64       `json:"minimumPayment"`
	DueDate        time.Time     `json:"dueDate"`
	PaymentHistory []DebtPayment `json:"paymentHistory"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (d *Debt) Validate() error {
	if d.Description == "" {
		return errors.NewValidationError("Description is required")
	}
	if d.Creditor == "" {
		return errors.NewValidationError("Creditor is required")
	}
	if d.Balance <= 0 {
		return errors.NewValidationError("Balance must be greater than zero")
	}
	if d.InterestRate < 0 {
		return errors.NewValidationError("Interest rate must not be negative")
	}
	if d.MinimumPayment < 0 {
		return errors.NewValidationError("Minimum payment must not be negative")
	}
	if d.DueDate.IsZero() {
		return errors.NewValidationError("Due date is required")
	}
	return nil
}

// ProgressPaid returns the share of the initial balance already repaid,
// as a percentage clamped to [0,100].
func (d *Debt) ProgressPaid() float64 {
	if d.InitialBalance <= 0 {
		return 0
	}
	paid := d.InitialBalance - d.Balance
	if paid < 0 {
		return 0
	}
	pct := paid / d.InitialBalance * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// DebtPatch carries optional replacement values for an update. Balance is
// patchable here on purpose: explicit corrections are the one allowed way to
// raise a balance.
type DebtPatch struct {
	Description    *string    `json:"description"`
	Creditor       *string    `json:"creditor"`
	Balance        *float64   `json:"balance"`
	InterestRate   *float64   `json:"interestRate"`
	MinimumPayment *float64   `json:"minimumPayment"`
	DueDate        *time.Time `json:"dueDate"`
}

// Merge applies the patch onto the existing debt.
func (d Debt) Merge(p DebtPatch) Debt {
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Creditor != nil {
		d.Creditor = *p.Creditor
	}
	if p.Balance != nil {
		d.Balance = *p.Balance
	}
	if p.InterestRate != nil {
		d.InterestRate = *p.InterestRate
	}
	if p.MinimumPayment != nil {
		d.MinimumPayment = *p.MinimumPayment
	}
	if p.DueDate != nil {
		d.DueDate = *p.DueDate
	}
	return d
}

type DebtRepository interface {
	Save(ctx context.Context, debt Debt) error
	FindByUser(ctx context.Context, userID string) ([]Debt, error)
	FindByID(ctx context.Context, debtID string) (*Debt, error)
	Update(ctx context.Context, debt Debt) error
	Delete(ctx context.Context, debtID string) error
	// RecordPayment applies a payment as one atomic unit: set the new
	// balance, append the history row and write the mirrored expense
	// transaction. Either all three land or none does.
	RecordPayment(ctx context.Context, debtID string, newBalance float64, payment DebtPayment, mirror Transaction) error
}
