package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"invoice-desk/pkg/config"
	"invoice-desk/pkg/database"
	"invoice-desk/pkg/handlers"
	"invoice-desk/pkg/services/document"
	"invoice-desk/pkg/services/invoices"
	"invoice-desk/pkg/services/ocr"
	"invoice-desk/pkg/services/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.IsDebug() {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Printf("[MAIN] starting with %s", cfg)

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}
	defer store.Close()

	files, err := openFileStore(cfg)
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	// an unset engine must stay a nil interface for the handlers
	var engine handlers.Diagnoser
	var recognizer ocr.Recognizer
	if cfg.OCREnabled() {
		svc := ocr.NewService(cfg.AzureOCREndpoint, cfg.AzureOCRKey, cfg.OCRLanguage)
		engine, recognizer = svc, svc
		log.Printf("[OCR] Azure OCR enabled (%s)", cfg.OCRLanguage)
	} else {
		log.Printf("[OCR] Azure OCR not configured, only embedded PDF text will be read")
	}

	h := handlers.NewHandler(handlers.Options{
		Invoices:      invoices.NewService(store, files),
		Extractor:     document.NewExtractor(recognizer),
		OCR:           engine,
		Files:         files,
		Backend:       store.Backend(),
		MaxUploadSize: cfg.MaxUploadSize,
	})
	router, err := handlers.NewRouter(h)
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	go func() {
		log.Printf("[MAIN] listening on %s (data: %s, files: %s)", cfg.Address(), store.Backend(), files.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[MAIN] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("[MAIN] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[MAIN] forced shutdown: %v", err)
	}
}

func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.DataBackend == config.BackendPostgres {
		return database.OpenPostgres(cfg.DatabaseURL, cfg.IsDebug())
	}
	log.Printf("[STORE] using in-memory data backend, invoices are lost on restart")
	return database.NewMemoryStore(), nil
}

func openFileStore(cfg *config.Config) (storage.FileStore, error) {
	if cfg.StorageBackend == config.StorageS3 {
		return storage.NewS3Store(storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	}
	return storage.NewLocalStore(cfg.UploadDir)
}
