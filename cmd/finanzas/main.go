package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/advice"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	apphttp "finanzas/internal/http"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := cli.SignalContext()
	defer stop()

	be := cli.OpenBackend(ctx, cfg)
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	clock := services.SystemClock{}
	recurring := services.NewRecurringProcessor(be.Store, be.Store, be.Publisher, clock)
	cards := services.NewCardLedger(be.Store, be.Publisher, clock)
	transactions := services.NewTransactionService(be.Store, be.Store, be.Publisher)
	advisor := advice.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), apphttp.Deps{
		Recurring:     recurring,
		Cards:         cards,
		Transactions:  transactions,
		Catalog:       services.NewCatalogService(be.Store, be.Store),
		Notifications: services.NewNotificationService(be.Store, clock),
		Advice:        services.NewAdviceService(recurring, cards, transactions, advisor, clock),
		Store:         be.Store,
		Clock:         clock,
		Logger:        logger.WithComponent(applog.ComponentHTTP),
	}, apphttp.Options{
		JWTSecret:          cfg.JWTSecret,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	logger.Info("Starting finanzas API",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", be.Publisher != nil,
		"openai_enabled", cfg.OpenAIAPIKey != "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		cache.NewJanitor(cards.Cleaner()).Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped gracefully")
}
