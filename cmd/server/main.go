package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/catalog"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/config"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/database"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/gateway"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/metrics"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/server"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/service"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/store"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/webhook"
	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var gw gateway.Gateway
	if cfg.Env == "local" {
		logger.Info("using mock gateway", "env", cfg.Env)
		gw = gateway.NewMockGateway()
	} else {
		gw = gateway.NewStripeGateway(cfg.StripeSecretKey)
	}

	var (
		intentStore store.IntentStore
		db          *sql.DB
		opts        []server.Option
	)
	if database.Configured() {
		db, err = database.NewPostgres()
		if err != nil {
			logger.Error("database open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		intentStore = pg
		opts = append(opts, server.WithHealthCheck(func() map[string]string {
			return database.Health(db)
		}))
	} else {
		logger.Info("no database configured, using in-memory store")
		intentStore = store.NewMemoryStore()
	}

	manager := service.NewLifecycleManager(gw, intentStore, cfg.Currency, logger)
	verifier := webhook.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	srv := server.New(manager, catalog.Default(), verifier, logger, opts...)

	sweeper := worker.NewReconciliationWorker(intentStore, gw, manager, cfg.SweepInterval, cfg.SweepAge, logger)
	go sweeper.Run(ctx)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(cfg.AllowedOrigins, reg),
	}

	go func() {
		logger.Info("listening", "port", cfg.Port, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
