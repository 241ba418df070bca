package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors making up the failure taxonomy services report.
// Handlers translate these to transport-level status codes.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrConflict     = errors.New("operation conflicts with existing state")
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// NewDependencyError wraps a persistence or upstream failure so callers can
// distinguish it from domain failures.
func NewDependencyError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

var ErrInvalidPaymentAmount = NewValidationError("Payment amount must be greater than zero")
var ErrCustomPeriodRange = NewValidationError("Custom period startDate must be before endDate")
var ErrSplitAmountMismatch = NewValidationError("Split amounts must sum to the transaction amount")
var ErrGoalOverTarget = NewValidationError("Current amount cannot exceed the target amount")
