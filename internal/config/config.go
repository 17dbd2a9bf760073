// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need to start.
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port string

	// ProjectID is the GCP project hosting BigQuery.
	ProjectID string

	// Dataset is the BigQuery dataset; empty selects the default.
	Dataset string

	// Bucket is the GCS bucket for receipt images.
	Bucket string

	// GeminiModel overrides the extraction model; empty selects the default.
	GeminiModel string

	// DefaultCurrency is used when a scan request carries no currency.
	DefaultCurrency string

	// QueueBuffer is the in-memory job queue capacity.
	QueueBuffer int

	// Workers is the number of concurrent scan job consumers.
	Workers int
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		Dataset:         os.Getenv("BQ_DATASET"),
		Bucket:          os.Getenv("GCS_BUCKET"),
		GeminiModel:     os.Getenv("GEMINI_MODEL"),
		DefaultCurrency: getenv("DEFAULT_CURRENCY", "EUR"),
		QueueBuffer:     getint("QUEUE_BUFFER", 100),
		Workers:         getint("WORKERS", 5),
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("config: GCP_PROJECT_ID is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("config: GCS_BUCKET is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
