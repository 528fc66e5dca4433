package sheets

import (
	"context"
	"time"

	"finanzas/internal/core"
)

// LedgerRow is one transaction as mirrored to a spreadsheet.
type LedgerRow struct {
	TransactionID int64
	OwnerID       string
	Date          time.Time
	Type          core.TransactionType
	Description   string
	Amount        core.Money
	Source        string // "manual" or "recurring"
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}
)

// Source labels.
const (
	SourceManual    = "manual"
	SourceRecurring = "recurring"
)

// RowFromTransaction converts t into its ledger row.
func RowFromTransaction(t core.Transaction) LedgerRow {
	source := SourceManual
	if t.RecurrenceID != nil {
		source = SourceRecurring
	}
	return LedgerRow{
		TransactionID: t.ID,
		OwnerID:       t.OwnerID,
		Date:          t.Date,
		Type:          t.Type,
		Description:   t.Description,
		Amount:        t.Amount,
		Source:        source,
	}
}
