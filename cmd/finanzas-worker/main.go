// Command finanzas-worker consumes domain events from AMQP. It stores the
// in-app notifications they raise and, when a spreadsheet is configured,
// mirrors new transactions to Google Sheets.
package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/sheets"
	"finanzas/internal/sheets/google"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	ctx, stop := cli.SignalContext()
	defer stop()

	be := cli.OpenBackend(ctx, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	client, ok := be.Publisher.(*amqp.Client)
	if !ok {
		logger.Error("AMQP connection unavailable", "url_set", cfg.AMQPURL != "")
		os.Exit(1)
	}

	var ledger sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		gc, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = gc
		logger.Info("Mirroring transactions to Google Sheets", "sheet", cfg.GoogleSheetName)
	}

	w := worker.NewEventWorker(services.NewNotificationService(be.Store, nil), ledger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := w.Run(gctx, client)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
