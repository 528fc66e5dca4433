package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Recurring     *services.RecurringProcessor
	Cards         *services.CardLedger
	Transactions  *services.TransactionService
	Catalog       *services.CatalogService
	Notifications *services.NotificationService
	Advice        *services.AdviceService
	Store         Pinger
	Clock         services.Clock
	Logger        *applog.Logger
}

type Options struct {
	JWTSecret          string
	CORSOrigins        []string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
}

// NewServer builds the API server listening on addr.
func NewServer(addr string, deps Deps, opts Options) *Server {
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	tracer := trace.NewMiddleware()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           newRouter(deps, opts, limiter, tracer),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		limiter: limiter,
		tracer:  tracer,
	}
	return s
}

func newRouter(deps Deps, opts Options, limiter *ratelimit.Limiter, tracer *trace.Middleware) *gin.Engine {
	if deps.Clock == nil {
		deps.Clock = services.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}

	r := gin.New()
	if err := r.SetTrustedProxies(security.DefaultTrustedProxies); err != nil {
		slog.Warn("Invalid trusted proxies", "error", err)
	}

	r.Use(gin.Recovery())
	r.Use(tracer.Handler())
	r.Use(applog.Middleware(deps.Logger, trace.RequestID))
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(security.NewDetector().Handler())
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", trace.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", trace.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(limiter.Handler())

	h := &handlers{deps: deps}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", h.ready)

	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(AuthMiddleware(opts.JWTSecret))
	{
		protected.GET("/recurring", h.listRecurrences)
		protected.POST("/recurring", h.createRecurrence)
		protected.GET("/recurring/due", h.listDue)
		protected.POST("/recurring/execute-due", h.executeDue)
		protected.GET("/recurring/:id", h.getRecurrence)
		protected.DELETE("/recurring/:id", h.deactivateRecurrence)
		protected.GET("/recurring/:id/preview", h.previewRecurrence)
		protected.POST("/recurring/:id/execute", h.executeRecurrence)

		protected.GET("/cards", h.listCards)
		protected.POST("/cards", h.createCard)
		protected.GET("/cards/upcoming-payments", h.upcomingPayments)
		protected.GET("/cards/:id", h.getCard)
		protected.GET("/cards/:id/transactions", h.listCardTransactions)
		protected.POST("/cards/:id/purchases", h.applyPurchase)
		protected.POST("/cards/:id/payments", h.applyPayment)

		protected.GET("/transactions", h.listTransactions)
		protected.POST("/transactions", h.createTransaction)
		protected.GET("/transactions/summary", h.monthSummary)
		protected.GET("/transactions/:id", h.getTransaction)

		protected.GET("/accounts", h.listAccounts)
		protected.POST("/accounts", h.createAccount)
		protected.GET("/categories", h.listCategories)
		protected.POST("/categories", h.createCategory)

		protected.GET("/notifications", h.listNotifications)
		protected.POST("/notifications/:id/read", h.markNotificationRead)

		protected.POST("/advice", h.advise)
	}

	return r
}

// Start serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains connections and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	m := s.tracer.GetMetrics()
	slog.Info("HTTP server shutting down",
		"total_requests", m.TotalRequests,
		"failed_requests", m.FailedRequests)
	return s.Server.Shutdown(ctx)
}

func (h *handlers) ready(c *gin.Context) {
	if h.deps.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Store.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
