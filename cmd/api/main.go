package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lightsheet-rebuild/bomtool/internal/api/handlers"
	"github.com/lightsheet-rebuild/bomtool/internal/api/middleware"
	"github.com/lightsheet-rebuild/bomtool/internal/config"
	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/jobs"
	"github.com/lightsheet-rebuild/bomtool/internal/jobs/inmemory"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
	"github.com/lightsheet-rebuild/bomtool/internal/metrics"
	"github.com/lightsheet-rebuild/bomtool/internal/pipeline"
	"github.com/lightsheet-rebuild/bomtool/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	port := flag.String("port", cfg.API.Port, "HTTP server port")
	flag.Parse()

	// Initialize logger
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := logger.WithContext(context.Background(), log)

	// Load the last published document, if any
	docs := &handlers.DocumentHolder{}
	doc, err := pipeline.LoadDocument(cfg.Output)
	if err != nil {
		log.Warn().Err(err).Str("document", cfg.Output).Msg("No document loaded - BOM endpoints return 503 until a rebuild succeeds")
	} else {
		docs.Set(doc)
		log.Info().
			Str("document", cfg.Output).
			Int("items", doc.Metadata.TotalItems).
			Msg("Loaded BOM document")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, 1, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	opener := storage.NewOpener(storage.S3OptionsFromConfig(cfg.S3))
	build := func(ctx context.Context, job *jobs.RebuildJob) (*domain.Document, error) {
		tmp, err := os.MkdirTemp("", "bom-input-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(tmp)

		input, err := storage.ResolveInput(ctx, opener, job.Input, tmp)
		if err != nil {
			return nil, err
		}

		result, err := pipeline.Build(ctx, pipeline.Options{
			Input:     input,
			Output:    job.Output,
			SheetName: job.Sheet,
		})
		if err != nil {
			return nil, err
		}
		return result.Document, nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting rebuild worker")
		if err := jobQueue.Start(workerCtx, handlers.RebuildJobHandler(docs, build)); err != nil {
			log.Error().Err(err).Msg("Rebuild worker stopped with error")
		}
	}()

	// Initialize handlers
	bomHandler := handlers.NewBOMHandler(docs, log)
	jobsHandler := handlers.NewJobsHandler(jobQueue, jobStore, handlers.RebuildDefaults{
		Input:  cfg.Input,
		Output: cfg.Output,
		Sheet:  cfg.Sheet,
	}, log)

	// Create router
	mux := http.NewServeMux()

	// BOM endpoints
	mux.HandleFunc("GET /api/bom", bomHandler.GetDocument)
	mux.HandleFunc("GET /api/bom/items", bomHandler.ListItems)
	mux.HandleFunc("GET /api/bom/summary", bomHandler.GetSummary)
	mux.HandleFunc("GET /api/bom/vendors", bomHandler.ListVendors)
	mux.HandleFunc("POST /api/bom/rebuild", jobsHandler.Rebuild)

	// Jobs endpoints
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)

	// Health check and metrics
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "healthy",
			"document": docs.Get() != nil,
			"time":     time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	// Apply middleware. Metrics must wrap the mux itself to read the matched route pattern.
	handler := middleware.Chain(middleware.Metrics(mux),
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
		middleware.GeneratedAt(func() string {
			if doc := docs.Get(); doc != nil {
				return doc.Metadata.GeneratedAt
			}
			return ""
		}),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for an in-flight rebuild
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
