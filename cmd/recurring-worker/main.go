// Command recurring-worker materializes every due recurrence once and raises
// card payment reminders, then exits. Schedule it with cron or a systemd timer.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	owner := flag.String("owner", "", "process a single owner instead of all of them")
	skipReminders := flag.Bool("skip-reminders", false, "do not raise card payment reminders")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateBatch)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentRecurring)

	ctx, stop := cli.SignalContext()
	defer stop()

	be := cli.OpenBackend(ctx, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	clock := services.SystemClock{}
	processor := services.NewRecurringProcessor(be.Store, be.Store, be.Publisher, clock)
	ledger := services.NewCardLedger(be.Store, be.Publisher, clock)
	notifications := services.NewNotificationService(be.Store, clock)

	logger.Info("Starting recurring run", "owner", *owner, "backend", cfg.DataBackend)

	failed := runRecurrences(ctx, logger, processor, *owner)
	if !*skipReminders {
		failed = runReminders(ctx, logger, ledger, notifications, *owner) || failed
	}

	if failed {
		os.Exit(1)
	}
	logger.Info("Recurring run complete")
}

func runRecurrences(ctx context.Context, logger *applog.Logger, p *services.RecurringProcessor, owner string) bool {
	results := map[string]services.BatchResult{}
	if owner != "" {
		res, err := p.ExecuteAllDue(ctx, owner)
		if err != nil {
			logger.Error("Failed to process recurrences", "owner_id", owner, "error", err)
			return true
		}
		results[owner] = res
	} else {
		var err error
		results, err = p.ExecuteAllOwners(ctx)
		if err != nil {
			logger.Error("Failed to process recurrences", "error", err)
			return true
		}
	}

	executed, failed := 0, 0
	for _, res := range results {
		executed += res.Executed
		failed += res.Failed
	}
	logger.Info("Processed recurrences",
		"owners", len(results),
		"executed", executed,
		"failed", failed)
	return failed > 0
}

func runReminders(ctx context.Context, logger *applog.Logger, ledger *services.CardLedger, n *services.NotificationService, owner string) bool {
	owners := []string{owner}
	if owner == "" {
		var err error
		if owners, err = ledger.Owners(ctx); err != nil {
			logger.Error("Failed to list card owners", "error", err)
			return true
		}
	}

	failed := false
	reminded := 0
	for _, o := range owners {
		payments, err := ledger.UpcomingPayments(ctx, o, core.Date{})
		if err != nil {
			logger.Error("Failed to compute upcoming payments", "owner_id", o, "error", err)
			failed = true
			continue
		}
		stored, err := n.RemindDuePayments(ctx, o, payments)
		reminded += stored
		if err != nil {
			slog.ErrorContext(ctx, "Failed to store payment reminders", "owner_id", o, "error", err)
			failed = true
		}
	}
	logger.Info("Raised payment reminders", "owners", len(owners), "reminders", reminded)
	return failed
}
