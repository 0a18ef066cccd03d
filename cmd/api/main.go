package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/chorehop/backend/internal/auth"
	"github.com/chorehop/backend/internal/config"
	"github.com/chorehop/backend/internal/escrow"
	"github.com/chorehop/backend/internal/jobs"
	"github.com/chorehop/backend/internal/ledger"
	"github.com/chorehop/backend/internal/notify"
	"github.com/chorehop/backend/internal/payments"
	"github.com/chorehop/backend/internal/router"
	"github.com/chorehop/backend/internal/validation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Notification worker
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewWorker(cfg.NotifyWebhookURL, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	enqueueEvent := func(ctx context.Context, tx pgx.Tx, args notify.EventArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}

	// Request schemas
	validator, err := validation.NewValidator(cfg.SchemaDir)
	if err != nil {
		slog.Error("Schema validator init failed", "error", err, "dir", cfg.SchemaDir)
		os.Exit(1)
	}

	// Ledger and escrow settlement
	ledgerRepo := ledger.NewRepository(pool)
	processor := payments.NewClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey)
	settlement := escrow.NewSettlement(ledgerRepo, processor, pool)

	// Jobs
	jobsRepo := jobs.NewRepository(pool)
	jobsSvc := jobs.NewService(jobsRepo, settlement, enqueueEvent, cfg.PlatformFeeRate, cfg.GeofenceRadiusFeet)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)

	authHandler := auth.NewHandler(authSvc, logger)
	jobsHandler := jobs.NewHandler(jobsSvc, validator, logger)
	ledgerHandler := ledger.NewHandler(ledgerRepo, logger)
	escrowHandler := escrow.NewHandler(settlement, validator, logger)

	api := router.New(authHandler, jobsHandler, ledgerHandler, escrowHandler, authSvc)
	handler := newHTTPHandler(api, pool)

	// Start River client (delivers notifications)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
