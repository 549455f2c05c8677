// Package app wires configuration, logging, telemetry, the JSON store,
// and the service layer into a single HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"certigen/internal/access"
	"certigen/internal/account"
	"certigen/internal/config"
	"certigen/internal/infrastructure"
	"certigen/internal/license"
	"certigen/internal/middleware"
	"certigen/internal/payment"
	"certigen/internal/store"
	transport "certigen/internal/transport/http"
)

// Application holds the assembled components.
type Application struct {
	cfg      *config.Config
	logger   *slog.Logger
	otel     *infrastructure.OTelProviders
	server   *http.Server
	accounts *account.Service
}

// New builds the application: config, logger, telemetry, store, services,
// router. It does not start listening; call Run.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	st, err := store.New(cfg.Store.Dir, cfg.Store.QuotaBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	engine := license.NewEngine()
	metrics, err := license.NewMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	accounts := account.NewService(st, engine, nil, cfg.Account, cfg.Admin, cfg.License.TrialDays, logger)
	registry := license.NewRegistry(st, cfg.License.KeyPrefix, logger, metrics)
	gate := access.NewGate(engine)
	payments := payment.NewWorkflow(st, accounts, cfg.License.PaymentGrantDays, logger, metrics)

	router := buildRouter(cfg, logger, otelProviders, accounts, registry, gate, payments, metrics)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Application{
		cfg:      cfg,
		logger:   logger,
		otel:     otelProviders,
		server:   srv,
		accounts: accounts,
	}, nil
}

func buildRouter(cfg *config.Config, logger *slog.Logger, otelProviders *infrastructure.OTelProviders,
	accounts *account.Service, registry *license.Registry, gate *access.Gate, payments *payment.Workflow,
	metrics *license.Metrics) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", transport.HealthHandler)
		r.Mount("/auth", transport.NewAuthHandler(accounts, gate, logger).Routes())
		r.Mount("/license", transport.NewLicenseHandler(accounts, registry, metrics, logger).Routes())
		r.Mount("/payments", transport.NewPaymentHandler(payments, logger).Routes())
		r.Mount("/admin", transport.NewAdminHandler(accounts, registry, payments, logger).Routes())
	})

	r.Handle("/metrics", otelProviders.PrometheusHTTP)

	return r
}

// Run bootstraps the admin account, starts the HTTP server, and blocks
// until ctx is cancelled, then shuts everything down in order.
func (a *Application) Run(ctx context.Context) error {
	if err := a.accounts.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := a.otel.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
		infrastructure.CloseLogFile()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	// 10ms grace so the final log lines flush before exit.
	time.Sleep(10 * time.Millisecond)
	return nil
}
