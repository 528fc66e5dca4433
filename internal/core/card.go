package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentFull    PaymentType = "FULL"
	PaymentMinimum PaymentType = "MINIMUM"
	PaymentPartial PaymentType = "PARTIAL"
)

type (
	PaymentType string

	CreditCard struct {
		ID             int64            `json:"id"`
		OwnerID        string           `json:"owner_id"`
		Name           string           `json:"name"`
		CreditLimit    Money            `json:"credit_limit"`
		CurrentBalance Money            `json:"current_balance"`
		CutOffDay      int              `json:"cut_off_day"`
		PaymentDueDay  int              `json:"payment_due_day"`
		InterestRate   *decimal.Decimal `json:"interest_rate,omitempty"`
		CreatedAt      time.Time        `json:"created_at"`
		UpdatedAt      time.Time        `json:"updated_at"`
	}

	// CreditCardTransaction is a purchase charged to a card. Immutable except
	// for IsPending, which a FULL payment clears.
	CreditCardTransaction struct {
		ID                int64     `json:"id"`
		CardID            int64     `json:"card_id"`
		OwnerID           string    `json:"owner_id"`
		Amount            Money     `json:"amount"`
		Description       string    `json:"description"`
		Installments      int       `json:"installments"`
		InstallmentAmount *Money    `json:"installment_amount,omitempty"`
		IsPending         bool      `json:"is_pending"`
		Date              Date      `json:"date"`
		CreatedAt         time.Time `json:"created_at"`
	}

	CreditCardPayment struct {
		ID          int64       `json:"id"`
		CardID      int64       `json:"card_id"`
		OwnerID     string      `json:"owner_id"`
		Amount      Money       `json:"amount"`
		PaymentType PaymentType `json:"payment_type"`
		Date        Date        `json:"date"`
		CreatedAt   time.Time   `json:"created_at"`
	}
)

func ParsePaymentType(s string) (PaymentType, error) {
	p := PaymentType(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PaymentFull, PaymentMinimum, PaymentPartial:
		return p, nil
	}
	return "", ErrInvalidPaymentType
}

// AvailableCredit is derived from limit and balance, floored at zero.
func (c CreditCard) AvailableCredit() Money {
	return c.CreditLimit.Sub(c.CurrentBalance).MaxZero()
}

// UsagePercentage is balance over limit, in percent with two decimals.
func (c CreditCard) UsagePercentage() decimal.Decimal {
	if c.CreditLimit.Cents <= 0 {
		return decimal.Zero
	}
	return c.CurrentBalance.Decimal().
		Div(c.CreditLimit.Decimal()).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.CreditLimit.Cents <= 0 {
		return ErrInvalidLimit
	}
	if c.CurrentBalance.Cents < 0 {
		return NewValidationError("current_balance", "cannot be negative")
	}
	if c.CutOffDay < 1 || c.CutOffDay > 31 {
		return NewValidationError("cut_off_day", "must be between 1 and 31")
	}
	if c.PaymentDueDay < 1 || c.PaymentDueDay > 31 {
		return NewValidationError("payment_due_day", "must be between 1 and 31")
	}
	if c.InterestRate != nil && c.InterestRate.IsNegative() {
		return NewValidationError("interest_rate", "cannot be negative")
	}
	return nil
}
