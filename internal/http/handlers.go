package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

type handlers struct {
	deps Deps
}

func (h *handlers) today() core.Date {
	return services.Today(h.deps.Clock)
}

// --- recurring

func (h *handlers) listRecurrences(c *gin.Context) {
	rs, err := h.deps.Recurring.List(c.Request.Context(), GetOwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recurrences": orEmpty(rs)})
}

func (h *handlers) createRecurrence(c *gin.Context) {
	var req createRecurrenceRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := req.toRecurrence(GetOwnerID(c), h.today())
	if err != nil {
		writeError(c, err)
		return
	}
	saved, err := h.deps.Recurring.Create(c.Request.Context(), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *handlers) getRecurrence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.deps.Recurring.Get(c.Request.Context(), GetOwnerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) deactivateRecurrence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Recurring.Deactivate(c.Request.Context(), GetOwnerID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) previewRecurrence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := queryInt(c, "n", defaultPreviewCount)
	if err == nil && (n < 1 || n > maxPreviewCount) {
		err = core.NewValidationError("n", "must be between 1 and 50")
	}
	if err != nil {
		writeError(c, err)
		return
	}
	dates, err := h.deps.Recurring.Preview(c.Request.Context(), GetOwnerID(c), id, n)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": orEmpty(dates)})
}

// listDue lists recurrences due by the end of as_of, default today.
func (h *handlers) listDue(c *gin.Context) {
	asOf, err := queryDate(c, "as_of")
	if err != nil {
		writeError(c, err)
		return
	}
	if asOf.IsZero() {
		asOf = h.today()
	}
	rs, err := h.deps.Recurring.ListDue(c.Request.Context(), GetOwnerID(c), asOf.EndOfDay())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"as_of": asOf, "recurrences": orEmpty(rs)})
}

func (h *handlers) executeRecurrence(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	exec, err := h.deps.Recurring.ExecuteOne(c.Request.Context(), GetOwnerID(c), id, services.MarkerManual)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exec)
}

func (h *handlers) executeDue(c *gin.Context) {
	res, err := h.deps.Recurring.ExecuteAllDue(c.Request.Context(), GetOwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- cards

func (h *handlers) listCards(c *gin.Context) {
	cards, err := h.deps.Cards.ListCards(c.Request.Context(), GetOwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": orEmpty(cards)})
}

func (h *handlers) createCard(c *gin.Context) {
	var req createCardRequest
	if !bindJSON(c, &req) {
		return
	}
	card, err := h.deps.Cards.CreateCard(c.Request.Context(), req.toCard(GetOwnerID(c)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *handlers) getCard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	card, err := h.deps.Cards.GetCard(c.Request.Context(), GetOwnerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"card":             card,
		"available_credit": card.AvailableCredit(),
		"usage_percentage": card.UsagePercentage().StringFixed(2),
	})
}

func (h *handlers) listCardTransactions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ts, err := h.deps.Cards.ListTransactions(c.Request.Context(), GetOwnerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": orEmpty(ts)})
}

func (h *handlers) applyPurchase(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req purchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	update, err := h.deps.Cards.ApplyPurchase(c.Request.Context(), GetOwnerID(c), id, req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}

func (h *handlers) applyPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	update, err := h.deps.Cards.ApplyPayment(c.Request.Context(), GetOwnerID(c), id, req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}

func (h *handlers) upcomingPayments(c *gin.Context) {
	ps, err := h.deps.Cards.UpcomingPayments(c.Request.Context(), GetOwnerID(c), h.today())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": orEmpty(ps)})
}

// --- transactions

func (h *handlers) listTransactions(c *gin.Context) {
	f, err := transactionFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ts, err := h.deps.Transactions.List(c.Request.Context(), GetOwnerID(c), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": orEmpty(ts)})
}

func (h *handlers) createTransaction(c *gin.Context) {
	var req createTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := req.toTransaction(GetOwnerID(c), h.deps.Clock.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	saved, err := h.deps.Transactions.Create(c.Request.Context(), t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *handlers) getTransaction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.deps.Transactions.Get(c.Request.Context(), GetOwnerID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// monthSummary totals year/month, default the current month.
func (h *handlers) monthSummary(c *gin.Context) {
	today := h.today()
	year, err := queryInt(c, "year", today.Year())
	if err != nil {
		writeError(c, err)
		return
	}
	month, err := queryInt(c, "month", today.Month())
	if err == nil && (month < 1 || month > 12) {
		err = core.ErrInvalidMonth
	}
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := h.deps.Transactions.MonthSummary(c.Request.Context(), GetOwnerID(c), year, month)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": s, "net": s.Net()})
}

// --- accounts and categories

func (h *handlers) listAccounts(c *gin.Context) {
	as, err := h.deps.Catalog.ListAccounts(c.Request.Context(), GetOwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": orEmpty(as)})
}

func (h *handlers) createAccount(c *gin.Context) {
	var req createAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.deps.Catalog.CreateAccount(c.Request.Context(), core.Account{
		OwnerID: GetOwnerID(c),
		Name:    req.Name,
		Balance: req.Balance,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *handlers) listCategories(c *gin.Context) {
	cs, err := h.deps.Catalog.ListCategories(c.Request.Context(), GetOwnerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": orEmpty(cs)})
}

func (h *handlers) createCategory(c *gin.Context) {
	var req createCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(c, err)
		return
	}
	cat, err := h.deps.Catalog.CreateCategory(c.Request.Context(), core.Category{
		OwnerID: GetOwnerID(c),
		Name:    req.Name,
		Type:    typ,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// --- notifications and advice

func (h *handlers) listNotifications(c *gin.Context) {
	unread := c.Query("unread") == "true"
	ns, err := h.deps.Notifications.List(c.Request.Context(), GetOwnerID(c), unread)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": orEmpty(ns)})
}

func (h *handlers) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Notifications.MarkRead(c.Request.Context(), GetOwnerID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) advise(c *gin.Context) {
	var req adviceRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	a, err := h.deps.Advice.Advise(c.Request.Context(), GetOwnerID(c), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
