package domain

import (
	"context"
	"time"

	"github.com/finvault/FinVault/internal/finance/errors"
)

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
	PeriodCustom  = "custom"
)

func IsValidPeriod(p string) bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

// Budget is a spending limit for one category over a period. Recurring budgets
// spawn successor budgets when their cycle ends; SuccessorID is set exactly
// once and marks the budget as already rolled over, which is what keeps the
// sweep from double-firing.
type Budget struct {
	ID             string     `json:"id"`
	UserID         string     `json:"-"`
	Category       string     `json:"category"`
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	Period         string     `json:"period"`
	CustomStart    *time.Time `json:"customStart,omitempty"`
	CustomEnd      *time.Time `json:"customEnd,omitempty"`
	Recurrence     string     `json:"recurrence"`
	Rollover       bool       `json:"rollover"`
	AlertThreshold float64    `json:"alertThreshold"`
	CycleAnchor    time.Time  `json:"-"`
	SuccessorID    *string    `json:"successorId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (b *Budget) Validate() error {
	if b.Category == "" {
		return errors.NewValidationError("Category is required")
	}
	if b.Amount < 0 {
		return errors.NewValidationError("Amount must not be negative")
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	if b.Period == "" {
		b.Period = PeriodMonthly
	}
	if !IsValidPeriod(b.Period) {
		return errors.NewValidationError("Period must be weekly, monthly, yearly or custom")
	}
	if b.Period == PeriodCustom {
		if b.CustomStart == nil || b.CustomEnd == nil {
			return errors.NewValidationError("Custom period requires startDate and endDate")
		}
		if !b.CustomStart.Before(*b.CustomEnd) {
			return errors.ErrCustomPeriodRange
		}
	}
	if b.Recurrence == "" {
		b.Recurrence = RecurrenceNone
	}
	if !IsValidRecurrence(b.Recurrence) {
		return errors.NewValidationError("Recurrence must be none, daily, weekly or monthly")
	}
	if b.AlertThreshold == 0 {
		b.AlertThreshold = 90
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return errors.NewValidationError("Alert threshold must be between 0 and 100")
	}
	return nil
}

// BudgetPatch carries optional replacement values for an update.
type BudgetPatch struct {
	Category       *string    `json:"category"`
	Amount         *float64   `json:"amount"`
	Currency       *string    `json:"currency"`
	Period         *string    `json:"period"`
	CustomStart    *time.Time `json:"customStart"`
	CustomEnd      *time.Time `json:"customEnd"`
	Recurrence     *string    `json:"recurrence"`
	Rollover       *bool      `json:"rollover"`
	AlertThreshold *float64   `json:"alertThreshold"`
}

// Merge applies the patch onto the existing budget, patch fields winning when
// present. Switching to a custom period requires both bounds in the patch.
func (b Budget) Merge(p BudgetPatch) Budget {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Currency != nil {
		b.Currency = *p.Currency
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.CustomStart != nil {
		b.CustomStart = p.CustomStart
	}
	if p.CustomEnd != nil {
		b.CustomEnd = p.CustomEnd
	}
	if p.Recurrence != nil {
		b.Recurrence = *p.Recurrence
	}
	if p.Rollover != nil {
		b.Rollover = *p.Rollover
	}
	if p.AlertThreshold != nil {
		b.AlertThreshold = *p.AlertThreshold
	}
	return b
}

type BudgetRepository interface {
	Save(ctx context.Context, budget Budget) error
	FindByUser(ctx context.Context, userID string) ([]Budget, error)
	FindByID(ctx context.Context, budgetID string) (*Budget, error)
	FindRecurring(ctx context.Context) ([]Budget, error)
	Update(ctx context.Context, budget Budget) error
	// SaveSuccessor atomically persists the successor budget and links it to
	// its predecessor. The unique successor link is what makes a budget roll
	// over at most once.
	SaveSuccessor(ctx context.Context, predecessorID string, successor Budget) error
	Delete(ctx context.Context, budgetID string) error
}
