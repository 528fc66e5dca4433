package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/services"
	"finanzas/internal/storage"
)

const (
	defaultPreviewCount = 5
	maxPreviewCount     = 50
	maxListLimit        = 500
)

type createRecurrenceRequest struct {
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	CategoryID  *int64     `json:"category_id"`
	AccountID   *int64     `json:"account_id"`
	Description string     `json:"description"`
	Frequency   string     `json:"frequency"`
	DayOfMonth  *int       `json:"day_of_month"`
	DayOfWeek   *int       `json:"day_of_week"`
	StartDate   core.Date  `json:"start_date"`
	EndDate     *core.Date `json:"end_date"`
	AutoCreate  *bool      `json:"auto_create"`
}

// toRecurrence builds the recurrence for owner. A missing start date means
// today and auto_create defaults to true.
func (r createRecurrenceRequest) toRecurrence(ownerID string, today core.Date) (core.Recurrence, error) {
	typ, err := core.ParseTransactionType(r.Type)
	if err != nil {
		return core.Recurrence{}, err
	}
	freq, err := core.ParseFrequency(r.Frequency)
	if err != nil {
		return core.Recurrence{}, err
	}
	start := r.StartDate
	if start.IsZero() {
		start = today
	}
	auto := true
	if r.AutoCreate != nil {
		auto = *r.AutoCreate
	}
	return core.Recurrence{
		OwnerID:     ownerID,
		Type:        typ,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		AccountID:   r.AccountID,
		Description: strings.TrimSpace(r.Description),
		Frequency:   freq,
		DayOfMonth:  r.DayOfMonth,
		DayOfWeek:   r.DayOfWeek,
		StartDate:   start,
		EndDate:     r.EndDate,
		AutoCreate:  auto,
	}, nil
}

type createTransactionRequest struct {
	Type        string     `json:"type"`
	Amount      core.Money `json:"amount"`
	CategoryID  *int64     `json:"category_id"`
	AccountID   *int64     `json:"account_id"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
	Tags        []string   `json:"tags"`
}

func (r createTransactionRequest) toTransaction(ownerID string, now time.Time) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(r.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	date := now
	if !r.Date.IsZero() {
		date = r.Date.Time
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return core.Transaction{
		OwnerID:     ownerID,
		Type:        typ,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		AccountID:   r.AccountID,
		Description: strings.TrimSpace(r.Description),
		Date:        date,
		Tags:        tags,
	}, nil
}

type createCardRequest struct {
	Name           string           `json:"name"`
	CreditLimit    core.Money       `json:"credit_limit"`
	CurrentBalance core.Money       `json:"current_balance"`
	CutOffDay      int              `json:"cut_off_day"`
	PaymentDueDay  int              `json:"payment_due_day"`
	InterestRate   *decimal.Decimal `json:"interest_rate"`
}

func (r createCardRequest) toCard(ownerID string) core.CreditCard {
	return core.CreditCard{
		OwnerID:        ownerID,
		Name:           strings.TrimSpace(r.Name),
		CreditLimit:    r.CreditLimit,
		CurrentBalance: r.CurrentBalance,
		CutOffDay:      r.CutOffDay,
		PaymentDueDay:  r.PaymentDueDay,
		InterestRate:   r.InterestRate,
	}
}

type purchaseRequest struct {
	Amount       core.Money `json:"amount"`
	Installments int        `json:"installments"`
	Description  string     `json:"description"`
	Date         core.Date  `json:"date"`
}

func (r purchaseRequest) toInput() services.PurchaseInput {
	return services.PurchaseInput{
		Amount:       r.Amount,
		Installments: r.Installments,
		Description:  r.Description,
		Date:         r.Date,
	}
}

type paymentRequest struct {
	Amount      core.Money `json:"amount"`
	PaymentType string     `json:"payment_type"`
	Date        core.Date  `json:"date"`
}

func (r paymentRequest) toInput() services.PaymentInput {
	return services.PaymentInput{
		Amount:      r.Amount,
		PaymentType: core.PaymentType(r.PaymentType),
		Date:        r.Date,
	}
}

type createAccountRequest struct {
	Name    string     `json:"name"`
	Balance core.Money `json:"balance"`
}

type createCategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type adviceRequest struct {
	Question string `json:"question"`
}

// bindJSON decodes the body into dst. Domain validation errors from custom
// decoders keep their kind; anything else is a 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, core.ErrValidation) {
			writeError(c, err)
		} else {
			badRequest(c, "invalid request body: "+err.Error())
		}
		return false
	}
	return true
}

// pathID reads a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, name string) (core.Date, error) {
	v := c.Query(name)
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.NewValidationError(name, "must be YYYY-MM-DD")
	}
	return d, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// transactionFilter builds a list filter from from, to, type, recurrence_id
// and limit query parameters. to is inclusive of the whole day.
func transactionFilter(c *gin.Context) (storage.TransactionFilter, error) {
	var f storage.TransactionFilter
	from, err := queryDate(c, "from")
	if err != nil {
		return f, err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return f, err
	}
	if !from.IsZero() {
		f.From = from.Time
	}
	if !to.IsZero() {
		f.To = to.EndOfDay()
	}
	if t := c.Query("type"); t != "" {
		if f.Type, err = core.ParseTransactionType(t); err != nil {
			return f, err
		}
	}
	if v := c.Query("recurrence_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, core.NewValidationError("recurrence_id", "must be an integer")
		}
		f.RecurrenceID = &id
	}
	if f.Limit, err = queryInt(c, "limit", 0); err != nil {
		return f, err
	}
	if f.Limit < 0 || f.Limit > maxListLimit {
		return f, core.NewValidationError("limit", "must be between 0 and 500")
	}
	return f, nil
}

// orEmpty keeps empty lists rendering as [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
