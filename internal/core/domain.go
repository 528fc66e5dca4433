package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily     Frequency = "DAILY"
	Weekly    Frequency = "WEEKLY"
	Biweekly  Frequency = "BIWEEKLY"
	Monthly   Frequency = "MONTHLY"
	Quarterly Frequency = "QUARTERLY"
	Yearly    Frequency = "YEARLY"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const maxDescriptionLen = 200

type (
	Frequency       string
	TransactionType string

	// Recurrence is a template that periodically materializes a Transaction.
	Recurrence struct {
		ID            int64           `json:"id"`
		OwnerID       string          `json:"owner_id"`
		Type          TransactionType `json:"type"`
		Amount        Money           `json:"amount"`
		CategoryID    *int64          `json:"category_id,omitempty"`
		AccountID     *int64          `json:"account_id,omitempty"`
		Description   string          `json:"description"`
		Frequency     Frequency       `json:"frequency"`
		DayOfMonth    *int            `json:"day_of_month,omitempty"`
		DayOfWeek     *int            `json:"day_of_week,omitempty"`
		StartDate     Date            `json:"start_date"`
		EndDate       *Date           `json:"end_date,omitempty"`
		NextExecution Date            `json:"next_execution"`
		LastExecuted  *time.Time      `json:"last_executed,omitempty"`
		IsActive      bool            `json:"is_active"`
		AutoCreate    bool            `json:"auto_create"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	Transaction struct {
		ID           int64           `json:"id"`
		OwnerID      string          `json:"owner_id"`
		Type         TransactionType `json:"type"`
		Amount       Money           `json:"amount"`
		CategoryID   *int64          `json:"category_id,omitempty"`
		AccountID    *int64          `json:"account_id,omitempty"`
		Description  string          `json:"description"`
		Date         time.Time       `json:"date"`
		RecurrenceID *int64          `json:"recurrence_id,omitempty"`
		Tags         []string        `json:"tags"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	Account struct {
		ID      int64  `json:"id"`
		OwnerID string `json:"owner_id"`
		Name    string `json:"name"`
		Balance Money  `json:"balance"`
	}

	Category struct {
		ID      int64           `json:"id"`
		OwnerID string          `json:"owner_id"`
		Name    string          `json:"name"`
		Type    TransactionType `json:"type"`
	}
)

// ParseFrequency accepts any letter case.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// Tag is the lower-case label attached to materialized transactions.
func (f Frequency) Tag() string {
	return strings.ToLower(string(f))
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if t != Income && t != Expense {
		return "", ErrInvalidType
	}
	return t, nil
}

// Sign is +1 for income and -1 for expenses.
func (t TransactionType) Sign() int64 {
	if t == Income {
		return 1
	}
	return -1
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func (r Recurrence) Validate() error {
	if r.Type != Income && r.Type != Expense {
		return ErrInvalidType
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := r.StartDate.Validate(); err != nil {
		return NewValidationError("start_date", err.Error())
	}
	if r.EndDate != nil {
		if err := r.EndDate.Validate(); err != nil {
			return NewValidationError("end_date", err.Error())
		}
		if r.EndDate.Before(r.StartDate.Time) {
			return NewValidationError("end_date", "must not be before start date")
		}
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return ErrInvalidDayOfMonth
	}
	if r.DayOfWeek != nil && (*r.DayOfWeek < 0 || *r.DayOfWeek > 6) {
		return ErrInvalidDayOfWeek
	}
	return nil
}

// Owned reports whether the recurrence belongs to ownerID.
func (r Recurrence) Owned(ownerID string) bool {
	return r.OwnerID == ownerID
}

func (t Transaction) Validate() error {
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return NewValidationError("date", "cannot be zero")
	}
	return nil
}

// SignedAmount is the effect of the transaction on an account balance.
func (t Transaction) SignedAmount() Money {
	return Money{Cents: t.Type.Sign() * t.Amount.Cents}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Type != Income && c.Type != Expense {
		return ErrInvalidType
	}
	return nil
}

// JoinTags and SplitTags convert between the stored and in-memory tag forms.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func SplitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

var errZeroDate = errors.New("date cannot be zero")
