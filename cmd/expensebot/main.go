package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensebot/internal/bot"
	"expensebot/internal/category"
	"expensebot/internal/config"
	"expensebot/internal/ledger"
	"expensebot/internal/log"
	"expensebot/internal/pending"
	"expensebot/internal/report"
	"expensebot/internal/services"
	"expensebot/internal/sheets"
	"expensebot/internal/sheets/google"
	"expensebot/internal/sheets/memory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting expensebot", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend sheets.Backend
	switch cfg.DataBackend {
	case "memory":
		backend = memory.New()
		logger.Info("Using in-memory backend; data will not survive a restart")
	default:
		client, err := google.New(ctx, cfg.SpreadsheetID, cfg.CredentialsPath)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		backend = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.SpreadsheetID)
	}

	resolver := category.NewResolver(backend)
	if err := resolver.Load(ctx); err != nil {
		logger.Error("Failed to load category mappings", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Category mappings loaded", "count", len(resolver.Categories()))

	pend := pending.NewStore(cfg.PendingMaxSize, cfg.PendingTTL)
	stopJanitor := pend.Janitor(cfg.PendingTTL)
	defer stopJanitor()

	writer := ledger.NewWriter(backend, resolver)
	reports := report.NewAggregator(backend)
	svc := services.NewEntryService(resolver, writer, reports, pend, backend)

	tg, err := bot.New(cfg.TelegramToken, svc, logger)
	if err != nil {
		logger.Error("Failed to initialize Telegram bot", log.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tg.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Bot terminated", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
}
