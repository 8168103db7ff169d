package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finscan/internal/api"
	"finscan/internal/api/handlers"
	"finscan/internal/blobstore"
	"finscan/internal/notifier"
	"finscan/internal/recognizer"
	"finscan/internal/repository"
	"finscan/internal/repository/memory"
	pgrepo "finscan/internal/repository/postgres"
	"finscan/internal/service"
	"finscan/pkg/auth"
	"finscan/pkg/config"
	"finscan/pkg/logger"
	"finscan/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting finscan service")

	ctx := context.Background()

	var (
		docRepo repository.DocumentRepository
		txRepo  repository.TransactionRepository
	)
	switch cfg.Database.Driver {
	case "memory":
		store := memory.NewStore()
		docRepo = store
		txRepo = memory.Transactions{Store: store}
		appLogger.Warn("Using in-memory storage, data is lost on restart")
	default:
		db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		docRepo = pgrepo.NewDocumentRepository(db, appLogger)
		txRepo = pgrepo.NewTransactionRepository(db, appLogger)
	}

	var blobs blobstore.Store
	switch cfg.Blob.Driver {
	case "gcs":
		gcs, err := blobstore.NewGCS(ctx, cfg.Blob.GCSBucket)
		if err != nil {
			appLogger.Fatal("Failed to create GCS blob store", zap.Error(err))
		}
		defer gcs.Close()
		blobs = gcs
	default:
		disk, err := blobstore.NewDisk(cfg.Blob.Dir, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create disk blob store", zap.Error(err))
		}
		blobs = disk
	}

	hub := notifier.NewHub(appLogger)
	recClient := recognizer.NewHTTPClient(cfg.Recognizer.URL, appLogger)

	dispatcher := service.NewDispatchService(
		docRepo, recClient, hub,
		cfg.Recognizer.Timeout, cfg.Recognizer.FallbackCurrency,
		appLogger,
	)
	uploadService := service.NewUploadService(docRepo, blobs, dispatcher, appLogger)
	txService := service.NewTransactionService(docRepo, txRepo, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey)

	docHandler := handlers.NewDocumentHandler(uploadService, txService, docRepo, blobs, appLogger)
	eventsHandler := handlers.NewEventsHandler(hub, docRepo, appLogger)

	app := api.SetupRouter(docHandler, eventsHandler, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}

	// Let in-flight recognitions finish so no document is stranded in
	// processing.
	dispatcher.Wait()
}
