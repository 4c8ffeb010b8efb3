package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/repository/mongodb"
	"github.com/mamadbah2/agritrace/internal/repository/postgres"
	"github.com/mamadbah2/agritrace/internal/repository/sheets"
	"github.com/mamadbah2/agritrace/internal/repository/snapshot"
	"github.com/mamadbah2/agritrace/internal/repository/sqlite"
	"github.com/mamadbah2/agritrace/internal/scheduler"
	"github.com/mamadbah2/agritrace/internal/server/handlers"
	"github.com/mamadbah2/agritrace/internal/server/router"
	ledgersvc "github.com/mamadbah2/agritrace/internal/service/ledger"
	"github.com/mamadbah2/agritrace/internal/service/notify"
	reportingsvc "github.com/mamadbah2/agritrace/internal/service/reporting"
	"github.com/mamadbah2/agritrace/internal/service/seed"
	whatsappclient "github.com/mamadbah2/agritrace/pkg/clients/whatsapp"
	"github.com/mamadbah2/agritrace/pkg/logger"
)

const seedStepDelay = 100 * time.Millisecond

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(logger.Options{Level: cfg.Log.Level, Console: cfg.Log.Console}))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, archive, err := openStore(ctx, cfg, baseLogger.Named("repo.store"))
	if err != nil {
		baseLogger.Fatal("failed to init batch store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	if closer, ok := store.(snapshot.Closer); ok {
		defer func() {
			if err := closer.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close batch store", zap.Error(err))
			}
		}()
	}

	if _, err := store.LoadAll(ctx); err != nil {
		if errors.Is(err, snapshot.ErrCorruptSnapshot) {
			baseLogger.Fatal("stored snapshot is corrupt, refusing to start", zap.Error(err))
		}
		baseLogger.Fatal("failed to read batch store", zap.Error(err))
	}

	ledger := ledgersvc.NewService(store, cfg.Server.PublicBaseURL, baseLogger.Named("svc.ledger"))
	reporting := reportingsvc.NewService(ledger, baseLogger.Named("svc.reporting"))

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirror := sheets.NewLedgerMirror(sheetsRepo, baseLogger.Named("repo.sheets.mirror"))
		if err := mirror.EnsureHeader(ctx); err != nil {
			baseLogger.Warn("failed to prepare ledger sheet", zap.Error(err))
		}
		ledger.AddListener(mirror)
		baseLogger.Info("ledger sheet mirror enabled")
	} else {
		baseLogger.Warn("google sheets not configured, ledger mirror disabled")
	}

	var messaging notify.MessagingService
	var messageHandler *handlers.MessageHandler
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		notifier := notify.NewWhatsAppNotifier(whatsClient, cfg.WhatsApp.NotifyTo, ledger.TraceURL, baseLogger.Named("svc.notify"))
		ledger.AddListener(notifier)
		messaging = notifier
		messageHandler = handlers.NewMessageHandler(notifier, baseLogger.Named("handlers.messages"))
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, notifications disabled")
	}

	if cfg.Store.SeedSample {
		seeder := seed.NewSeeder(ledger, cfg.Server.DefaultFarmerID, seedStepDelay, baseLogger.Named("svc.seed"))
		if _, _, err := seeder.Run(ctx); err != nil {
			baseLogger.Error("failed to seed sample data", zap.Error(err))
		}
		defer seeder.Wait()
	}

	sched, err := scheduler.NewScheduler(*cfg, reporting, archive, messaging, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	gin.SetMode(gin.ReleaseMode)
	batchHandler := handlers.NewBatchHandler(ledger, reporting, cfg.Server.DefaultFarmerID, cfg.Server.QRSize, baseLogger.Named("handlers.batches"))
	engine := router.New(batchHandler, messageHandler, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Backend),
			zap.String("public_base_url", cfg.Server.PublicBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore builds the configured snapshot backend. The digest archive is
// only available on MongoDB.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (snapshot.Store, scheduler.DigestArchive, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory store, batches are lost on restart")
		return snapshot.NewMemoryStore(), nil, nil
	case config.BackendFile:
		store, err := snapshot.NewFileStore(cfg.Store.FilePath, log)
		return store, nil, err
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.Store.SQLitePath, cfg.Store.SnapshotKey, log)
		return store, nil, err
	case config.BackendPostgres:
		store, err := postgres.NewRepository(ctx, cfg.Store.PostgresDSN, cfg.Store.SnapshotKey, log)
		return store, nil, err
	case config.BackendMongoDB:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.Store.SnapshotKey)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
