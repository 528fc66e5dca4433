// Package advice turns a snapshot of an owner's finances into short,
// actionable hints, either from a chat model or from fixed rules.
package advice

import (
	"context"

	"finanzas/internal/core"
)

// Snapshot is everything an Advisor may look at. It carries no identifiers
// beyond card and recurrence names.
type Snapshot struct {
	AsOf     core.Date         `json:"as_of"`
	Month    core.MonthSummary `json:"month"`
	Due      []DueRecurrence   `json:"due_recurrences"`
	Payments []CardPaymentDue  `json:"card_payments"`
	Question string            `json:"question,omitempty"`
}

type DueRecurrence struct {
	Description   string               `json:"description"`
	Type          core.TransactionType `json:"type"`
	Amount        core.Money           `json:"amount"`
	NextExecution core.Date            `json:"next_execution"`
}

type CardPaymentDue struct {
	CardName     string     `json:"card_name"`
	Balance      core.Money `json:"balance"`
	DueDate      core.Date  `json:"due_date"`
	DaysUntilDue int        `json:"days_until_due"`
	IsOverdue    bool       `json:"is_overdue"`
}

type Advice struct {
	Summary string   `json:"summary"`
	Tips    []string `json:"tips"`
	Source  string   `json:"source"`
}

type Advisor interface {
	Advise(ctx context.Context, s Snapshot) (Advice, error)
}

// New returns the OpenAI advisor when apiKey is set, falling back to the
// rule-based one on model errors. Without a key only the rules are used.
func New(apiKey, baseURL, model string) Advisor {
	if apiKey == "" {
		return Rules{}
	}
	return &Fallback{
		Primary:   NewOpenAI(apiKey, baseURL, model),
		Secondary: Rules{},
	}
}
