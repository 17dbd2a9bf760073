package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	log := logger.New("worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	runner := app.NewRunner(repo, analyzer, insightGen, location.NewDirectory(nil), log)

	// In production this queue would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.Workers, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		scanJob, ok := job.(*jobs.ScanReceiptJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", scanJob.JobID).
			Str("user_id", scanJob.UserID).
			Int("images", len(scanJob.ImageURIs)).
			Msg("Processing scan job")

		currency := scanJob.Currency
		if currency == "" {
			currency = cfg.DefaultCurrency
		}

		resp, err := runner.Run(ctx, scanJob.UserID, app.ScanRequest{
			Images:    scanJob.ImageURIs,
			Currency:  currency,
			StoreType: scanJob.StoreType,
		})
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", scanJob.JobID).
				Msg("Scan job failed")
			return err
		}
		if !resp.Result.Success {
			log.Warn().
				Str("job_id", scanJob.JobID).
				Str("error", resp.Result.Error).
				Msg("Scan pipeline rejected the receipt")
			return nil
		}

		log.Info().
			Str("job_id", scanJob.JobID).
			Str("route", string(resp.Result.Route)).
			Msg("Scan job completed")

		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
