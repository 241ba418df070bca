package domain

import (
	"context"
	"math"
	"time"

	"github.com/finvault/FinVault/internal/finance/errors"
)

const (
	TransactionTypeIncome     = "income"
	TransactionTypeExpense    = "expense"
	TransactionTypeTransfer   = "transfer"
	TransactionTypeInvestment = "investment"
)

const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

func IsValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer, TransactionTypeInvestment:
		return true
	}
	return false
}

func IsValidRecurrence(r string) bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Split is a sub-transaction inside a split transaction. Split amounts must
// sum to the parent amount.
type Split struct {
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Notes    string  `json:"notes,omitempty"`
}

// Transaction records a single money movement. Amount is always non-negative
// and normalized to the base currency; direction is encoded by Type, not sign.
// A transaction with Recurrence other than "none" acts as a template the
// recurrence sweep copies from; LastGeneratedAt is the sweep's watermark.
type Transaction struct {
	ID               string     `json:"id"`
	UserID           string     `json:"-"`
	AccountID        *string    `json:"account,omitempty"`
	Type             string     `json:"type"`
	SubType          string     `json:"subType,omitempty"`
	Amount           float64    `json:"amount"`
	OriginalAmount   float64    `json:"originalAmount"`
	OriginalCurrency string     `json:"originalCurrency"`
	Category         string     `json:"category"`
	Date             time.Time  `json:"date"`
	Notes            string     `json:"notes,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	Recurrence       string     `json:"recurrence"`
	LastGeneratedAt  *time.Time `json:"lastGeneratedAt,omitempty"`
	Splits           []Split    `json:"splitTransactions,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (t *Transaction) Validate() error {
	if !IsValidTransactionType(t.Type) {
		return errors.NewValidationError("Type must be income, expense, transfer or investment")
	}
	if t.Amount < 0 {
		return errors.NewValidationError("Amount must not be negative")
	}
	if t.Category == "" {
		return errors.NewValidationError("Category is required")
	}
	if len(t.Notes) > 500 {
		return errors.NewValidationError("Notes cannot exceed 500 characters")
	}
	if t.Recurrence == "" {
		t.Recurrence = RecurrenceNone
	}
	if !IsValidRecurrence(t.Recurrence) {
		return errors.NewValidationError("Recurrence must be none, daily, weekly or monthly")
	}
	if len(t.Splits) > 0 {
		var sum float64
		for _, s := range t.Splits {
			if s.Amount < 0 {
				return errors.NewValidationError("Split amount must not be negative")
			}
			if s.Category == "" {
				return errors.NewValidationError("Split category is required")
			}
			sum += s.Amount
		}
		if math.Abs(sum-t.Amount) > 0.005 {
			return errors.ErrSplitAmountMismatch
		}
	}
	return nil
}

// TransactionPatch carries optional replacement values for an update.
type TransactionPatch struct {
	AccountID  *string   `json:"account"`
	Type       *string   `json:"type"`
	SubType    *string   `json:"subType"`
	Amount     *float64  `json:"amount"`
	Currency   *string   `json:"currency"`
	Category   *string   `json:"category"`
	Date       *string   `json:"date"`
	Notes      *string   `json:"notes"`
	Tags       *[]string `json:"tags"`
	Recurrence *string   `json:"recurrence"`
	Splits     *[]Split  `json:"splitTransactions"`
}

// Merge applies the patch onto the existing transaction. Amount and currency
// handling (conversion, split sums) is the service's responsibility; the merge
// only resolves per-field precedence.
func (t Transaction) Merge(p TransactionPatch) Transaction {
	if p.AccountID != nil {
		t.AccountID = p.AccountID
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.SubType != nil {
		t.SubType = *p.SubType
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.Recurrence != nil {
		t.Recurrence = *p.Recurrence
	}
	if p.Splits != nil {
		t.Splits = *p.Splits
	}
	return t
}

// TransactionFilter narrows a transaction listing. Zero values mean "no filter".
type TransactionFilter struct {
	Type      string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	Query     string
	MinAmount *float64
	MaxAmount *float64
	Tags      []string
	Page      int
	Limit     int
}

type TransactionRepository interface {
	Save(ctx context.Context, transaction Transaction) error
	FindByID(ctx context.Context, transactionID string) (*Transaction, error)
	FindByIDs(ctx context.Context, userID string, transactionIDs []string) ([]Transaction, error)
	FindByAccount(ctx context.Context, accountID string) ([]Transaction, error)
	FindByFilter(ctx context.Context, userID string, filter TransactionFilter) ([]Transaction, int, error)
	FindRecent(ctx context.Context, userID string, limit int) ([]Transaction, error)
	FindExpensesInRange(ctx context.Context, userID, category string, start, end time.Time) ([]Transaction, error)
	FindRecurringTemplates(ctx context.Context) ([]Transaction, error)
	Update(ctx context.Context, transaction Transaction) error
	UpdateCategoryAndTags(ctx context.Context, userID string, transactionIDs []string, category *string, tags []string) error
	UpdateLastGenerated(ctx context.Context, transactionID string, generatedAt time.Time) error
	Delete(ctx context.Context, transactionID string) error
	DeleteByIDs(ctx context.Context, userID string, transactionIDs []string) error
	DeleteByAccount(ctx context.Context, accountID string) error
	CountByAccount(ctx context.Context, accountID string) (int, error)
}
