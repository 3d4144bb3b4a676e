package common

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN != "propostas.db" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Ingest.MaxUploadFiles != 20 {
		t.Errorf("max upload files = %d", cfg.Ingest.MaxUploadFiles)
	}
	if cfg.Ingest.MaxUploadBytes != 16<<20 {
		t.Errorf("max upload bytes = %d", cfg.Ingest.MaxUploadBytes)
	}
	if cfg.Reextract.BatchSize != 25 {
		t.Errorf("batch size = %d", cfg.Reextract.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/propostas")
	t.Setenv("MAX_UPLOAD_FILES", "5")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN != "postgres://localhost/propostas" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Ingest.MaxUploadFiles != 5 {
		t.Errorf("max upload files = %d", cfg.Ingest.MaxUploadFiles)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Reextract.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero batch size must be rejected")
	}
}
