package config

import "testing"

func TestLoadRequiresProjectAndBucket(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "")
	t.Setenv("GCS_BUCKET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when GCP_PROJECT_ID is missing")
	}

	t.Setenv("GCP_PROJECT_ID", "proj")
	if _, err := Load(); err == nil {
		t.Error("expected error when GCS_BUCKET is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "proj")
	t.Setenv("GCS_BUCKET", "bucket")
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_CURRENCY", "")
	t.Setenv("QUEUE_BUFFER", "")
	t.Setenv("WORKERS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.DefaultCurrency != "EUR" {
		t.Errorf("DefaultCurrency = %s, want EUR", cfg.DefaultCurrency)
	}
	if cfg.QueueBuffer != 100 {
		t.Errorf("QueueBuffer = %d, want 100", cfg.QueueBuffer)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want 5 on unparsable input", cfg.Workers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "proj")
	t.Setenv("GCS_BUCKET", "bucket")
	t.Setenv("PORT", "9000")
	t.Setenv("WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %s, want 9000", cfg.Port)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
}
