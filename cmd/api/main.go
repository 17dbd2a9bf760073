package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/api/handlers"
	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/app"
	"github.com/dvloznov/receipt-ledger/internal/config"
	"github.com/dvloznov/receipt-ledger/internal/gcs"
	"github.com/dvloznov/receipt-ledger/internal/gemini"
	infraBQ "github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
	"github.com/dvloznov/receipt-ledger/internal/insights"
	"github.com/dvloznov/receipt-ledger/internal/jobs"
	"github.com/dvloznov/receipt-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/receipt-ledger/internal/location"
	"github.com/dvloznov/receipt-ledger/internal/logger"
)

func main() {
	log := logger.New("api")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	images, err := gcs.NewImageStore(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}
	defer images.Close()

	analyzer, err := gemini.NewAnalyzer(ctx, cfg.GeminiModel, images)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create analyzer")
	}

	insightGen, err := insights.NewGenerator(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create insight generator")
	}

	cities := location.NewDirectory(nil)
	runner := app.NewRunner(repo, analyzer, insightGen, cities, log)

	// Job infrastructure with an in-process consumer
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := newScanJobHandler(runner, cfg.DefaultCurrency, log)
	go func() {
		log.Info().Msg("Starting scan job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Scan job worker stopped with error")
		}
	}()

	// Handlers
	scansHandler := handlers.NewScansHandler(runner, jobQueue, log)
	imagesHandler := handlers.NewImagesHandler(images, log)
	creditsHandler := handlers.NewCreditsHandler(repo, log)
	transactionsHandler := handlers.NewTransactionsHandler(repo, log)
	mappingsHandler := handlers.NewMappingsHandler(repo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/scans", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			scansHandler.CreateScan(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/images", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			imagesHandler.UploadImage(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/credits", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			creditsHandler.GetBalance(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/mappings/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/mappings/")
		kind, id, _ := strings.Cut(rest, "/")
		if kind == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Mapping kind is required")
			return
		}

		switch {
		case r.Method == http.MethodGet && id == "":
			mappingsHandler.ListMappings(w, r, kind)
		case r.Method == http.MethodPost && id == "":
			mappingsHandler.CreateMapping(w, r, kind)
		case r.Method == http.MethodDelete && id != "":
			mappingsHandler.DeleteMapping(w, r, kind, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health stays outside the auth boundary
	root := http.NewServeMux()
	root.Handle("/api/", middleware.Auth(mux))
	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newScanJobHandler adapts the runner to the job queue. Async scans carry no
// UI, so only failures matter here; results land in BigQuery via the
// trusted-save path or are dropped when the merchant is not trusted yet.
func newScanJobHandler(runner *app.Runner, defaultCurrency string, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		scanJob, ok := job.(*jobs.ScanReceiptJob)
		if !ok {
			log.Error().Str("job_id", job.GetID()).Msg("Unexpected job type")
			return nil
		}

		currency := scanJob.Currency
		if currency == "" {
			currency = defaultCurrency
		}

		resp, err := runner.Run(ctx, scanJob.UserID, app.ScanRequest{
			Images:    scanJob.ImageURIs,
			Currency:  currency,
			StoreType: scanJob.StoreType,
		})
		if err != nil {
			return err
		}
		if !resp.Result.Success {
			log.Warn().
				Str("job_id", scanJob.JobID).
				Str("error", resp.Result.Error).
				Msg("Scan job did not produce a transaction")
		}
		return nil
	}
}
