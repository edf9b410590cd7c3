// Package app wires configuration, storage, repositories, the lifecycle
// orchestrator and the HTTP surface into a runnable service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"valeshop/internal/config"
	"valeshop/internal/infrastructure"
	"valeshop/internal/licenses"
	"valeshop/internal/lifecycle"
	customMiddleware "valeshop/internal/middleware"
	"valeshop/internal/orders"
	"valeshop/internal/store"
	"valeshop/internal/store/memstore"
	"valeshop/internal/store/sqlstore"
	"valeshop/internal/tokens"
	handlers "valeshop/internal/transport/http"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Application is the dependency container for the lifecycle engine.
type Application struct {
	Config    *config.Config
	Router    *chi.Mux
	Server    *http.Server
	Store     store.Store
	Orders    *orders.Repository
	Tokens    *tokens.Repository
	Licenses  *licenses.Repository
	Lifecycle *lifecycle.Service
	Metrics   *infrastructure.MetricsProviders
	Logger    *slog.Logger

	engineMetrics *infrastructure.EngineMetrics
}

// NewApplication builds the full dependency graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", Version),
		slog.String("store_driver", cfg.Store.Driver))

	metrics, err := infrastructure.InitializeMetrics(Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

func (a *Application) initializeServices() error {
	switch a.Config.Store.Driver {
	case "memory":
		a.Store = memstore.New()
	default:
		st, err := sqlstore.Open(a.Config.Store.DSN)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		a.Store = st
	}

	engineMetrics, err := infrastructure.NewEngineMetrics(a.Metrics.Meter)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	a.engineMetrics = engineMetrics

	a.Orders = orders.New(a.Store, a.Config.Store.OrderTTL, a.Logger)
	a.Tokens = tokens.New(a.Store, a.Config.Store.TokenLifetime, a.Config.Store.TokenTTL, a.Logger)
	a.Licenses = licenses.New(a.Store, a.Config.Store.LicenseTTL, a.Logger)
	a.Lifecycle = lifecycle.New(a.Orders, a.Tokens, a.Licenses, engineMetrics, a.Logger)
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(customMiddleware.Metrics(a.engineMetrics))
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	urls := handlers.URLBuilder{
		Origin:      a.Config.Public.Origin,
		OrderPath:   a.Config.Public.OrderPath,
		DeliverPath: a.Config.Public.DeliverPath,
	}

	orderHandler := handlers.NewOrderHandler(a.Orders, urls, a.engineMetrics, a.Logger)
	paymentHandler := handlers.NewPaymentHandler(a.Orders, a.Lifecycle, a.Logger)
	adminHandler := handlers.NewAdminHandler(a.Orders, a.Lifecycle, a.Licenses, a.Logger)
	licenseHandler := handlers.NewLicenseHandler(a.Licenses, a.engineMetrics, a.Logger)
	deliverHandler := handlers.NewDeliverHandler(a.Tokens, a.engineMetrics, a.Logger)
	healthHandler := handlers.NewHealthHandler(Version)

	adminAuth := customMiddleware.SecretHeader{
		Header: "X-Admin-Secret",
		Secret: a.Config.Security.AdminSecret,
	}
	webhookAuth := customMiddleware.SecretHeader{
		Header: "X-Webhook-Secret",
		Secret: a.Config.Security.WebhookSecret,
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout))

		r.Get("/health", healthHandler.HealthCheck)

		r.Post("/order/create", orderHandler.Create)
		r.Get("/order/{orderID}", orderHandler.Get)
		r.Get("/deliver/{token}", deliverHandler.Redeem)
		r.Mount("/license", licenseHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.RequireAuth(webhookAuth, a.Logger))
			r.Post("/webhook/payment", paymentHandler.HandleWebhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.RequireAuth(adminAuth, a.Logger))
			r.Mount("/admin", adminHandler.Routes())
		})
	})

	// Prometheus scrape endpoint, outside the API middleware stack.
	if a.Metrics.PrometheusHTTP != nil {
		r.Handle("/metrics", a.Metrics.PrometheusHTTP)
	}

	r.NotFound(handlers.NotFoundHandler)
	r.MethodNotAllowed(handlers.NotFoundHandler)

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start begins serving. Non-blocking; a server error cancels the context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "server listening",
		slog.Int("port", a.Config.Server.Port))
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop gracefully shuts the application down.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := a.Metrics.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "metrics shutdown error", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run serves until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.Start(ctx, cancel)

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
