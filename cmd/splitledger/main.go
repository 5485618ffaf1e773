package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"splitledger/internal/amqp"
	"splitledger/internal/cache"
	"splitledger/internal/cli"
	"splitledger/internal/core"
	apphttp "splitledger/internal/http"
	"splitledger/internal/log"
	"splitledger/internal/metrics"
	"splitledger/internal/middleware/auth"
	"splitledger/internal/middleware/ratelimit"
	"splitledger/internal/middleware/security"
	"splitledger/internal/services"
	"splitledger/internal/sheets"
	gsheet "splitledger/internal/sheets/google"
)

const (
	amqpConnectAttempts = 5
	shutdownTimeout     = 30 * time.Second
	cacheSweepInterval  = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.InfoContext(ctx, "Starting splitledger", log.FieldOperation, log.OpStartup, "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	m := metrics.New()

	// Events are optional. Without a broker the ledger runs standalone.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.ConnectWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, amqpConnectAttempts)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, continuing without events", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.InfoContext(ctx, "AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.InfoContext(ctx, "AMQP disabled, ledger events will not be published")
	}

	var sheet sheets.RowAppender
	if cfg.SheetsEnabled() {
		exporter, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleExportSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		sheet = exporter
		logger.InfoContext(ctx, "Google Sheets export enabled", "sheet", cfg.GoogleExportSheetName)
	}

	deps := services.Deps{Store: repo, Publisher: publisher, Metrics: m}
	limits := cfg.Limits()
	categoryCache := cache.NewLRUCache[[]core.Category](100, 5*time.Minute)
	m.WatchCache("categories", categoryCache.Stats)

	svc := apphttp.Services{
		Expenses:    services.NewExpenseService(deps, limits, services.Paging{Default: cfg.PageSizeDefault, Max: cfg.PageSizeMax}),
		Recurring:   services.NewRecurringService(deps, limits),
		SplitConfig: services.NewSplitConfigService(deps),
		Settlements: services.NewSettlementService(deps, limits),
		Categories:  services.NewCategoryService(deps, categoryCache),
		Analytics:   services.NewAnalyticsService(deps),
		Export:      services.NewExportService(deps, cfg.ExportMaxSpan, sheet),
	}

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	m.WatchRateLimiter(limiter.ActiveClients)
	router := apphttp.NewRouter(apphttp.RouterConfig{
		Services: svc,
		Auth:     auth.NewManager(cfg.JWTSecret),
		Metrics:  m,
		Logger:   logger,
		Limiter:  limiter,
		IPs:      security.NewIPExtractor(),
		Health:   repo.Ping,
	})
	srv := apphttp.NewServer(":"+cfg.Port, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		cache.NewJanitor(categoryCache).Run(gctx, cacheSweepInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(context.Background(), "Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
