package advice

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
)

const SourceRules = "rules"

// Rules produces deterministic hints from the snapshot alone.
type Rules struct{}

func (Rules) Advise(_ context.Context, s Snapshot) (Advice, error) {
	var tips []string

	for _, p := range s.Payments {
		switch {
		case p.IsOverdue:
			tips = append(tips, fmt.Sprintf("El pago de %s venció el %s; salda %s cuanto antes para evitar intereses.", p.CardName, p.DueDate, p.Balance))
		case p.DaysUntilDue <= 5:
			tips = append(tips, fmt.Sprintf("%s vence en %d días (%s): reserva %s.", p.CardName, p.DaysUntilDue, p.DueDate, p.Balance))
		}
	}

	var dueOut int64
	for _, d := range s.Due {
		if d.Type == core.Expense {
			dueOut += d.Amount.Cents
		}
	}
	if dueOut > 0 {
		tips = append(tips, fmt.Sprintf("Tienes %d recurrencias pendientes que suman %s en gastos.", len(s.Due), core.Money{Cents: dueOut}))
	}

	net := s.Month.Net()
	switch {
	case s.Month.Income.Cents == 0 && s.Month.Expenses.Cents > 0:
		tips = append(tips, "Este mes solo hay gastos registrados; revisa si falta registrar ingresos.")
	case net.Cents < 0:
		tips = append(tips, fmt.Sprintf("Los gastos superan a los ingresos del mes en %s.", core.Money{Cents: -net.Cents}))
	case s.Month.Income.Cents > 0 && net.Cents*5 >= s.Month.Income.Cents:
		tips = append(tips, "Ahorras al menos el 20% de tus ingresos este mes; considera apartar el excedente.")
	}

	if len(tips) == 0 {
		tips = append(tips, "No hay pagos urgentes ni recurrencias pendientes.")
	}

	return Advice{
		Summary: fmt.Sprintf("Balance de %d-%02d: ingresos %s, gastos %s, neto %s.",
			s.Month.Year, s.Month.Month, s.Month.Income, s.Month.Expenses, net),
		Tips:   tips,
		Source: SourceRules,
	}, nil
}

// Fallback asks Primary and answers with Secondary when Primary fails.
type Fallback struct {
	Primary   Advisor
	Secondary Advisor
}

func (f *Fallback) Advise(ctx context.Context, s Snapshot) (Advice, error) {
	a, err := f.Primary.Advise(ctx, s)
	if err == nil {
		return a, nil
	}
	slog.WarnContext(ctx, "Advisor failed, using fallback", "error", err)
	return f.Secondary.Advise(ctx, s)
}
