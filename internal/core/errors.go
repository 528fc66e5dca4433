package core

import "errors"

// Error kinds. Callers classify with errors.Is; every error produced by the
// services wraps exactly one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

// ValidationError describes a rejected input field. It unwraps to ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

var (
	ErrInvalidDay         = NewValidationError("date", "invalid day")
	ErrInvalidMonth       = NewValidationError("date", "invalid month")
	ErrInvalidAmount      = NewValidationError("amount", "must be greater than zero")
	ErrAmountOutOfRange   = NewValidationError("amount", "out of range")
	ErrEmptyDescription   = NewValidationError("description", "cannot be empty")
	ErrDescriptionTooLong = NewValidationError("description", "too long (max 200 characters)")
	ErrInvalidFrequency   = NewValidationError("frequency", "unknown frequency")
	ErrInvalidDayOfMonth  = NewValidationError("day_of_month", "must be between 1 and 31")
	ErrInvalidDayOfWeek   = NewValidationError("day_of_week", "must be between 0 and 6")
	ErrInvalidType        = NewValidationError("type", "must be INCOME or EXPENSE")
	ErrMissingCategory    = NewValidationError("category_id", "recurrence has no category")
	ErrInvalidInstallment = NewValidationError("installments", "must be at least 1")
	ErrInvalidPaymentType = NewValidationError("payment_type", "must be FULL, MINIMUM or PARTIAL")
	ErrInvalidLimit       = NewValidationError("credit_limit", "must be greater than zero")
	ErrEmptyName          = NewValidationError("name", "cannot be empty")
)
