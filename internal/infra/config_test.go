package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.ScratchDir != "data/scratch" {
		t.Fatalf("scratch dir = %q, want data/scratch", cfg.ScratchDir)
	}
	if cfg.OutputBaseURL != "http://localhost:8080/output" {
		t.Fatalf("output base url = %q", cfg.OutputBaseURL)
	}
	if cfg.MaxUploadBytes != 500<<20 {
		t.Fatalf("max upload bytes = %d, want %d", cfg.MaxUploadBytes, int64(500<<20))
	}
	if cfg.OutputTTL != 24*time.Hour {
		t.Fatalf("output ttl = %v, want 24h", cfg.OutputTTL)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("database url should default to empty, got %q", cfg.DatabaseURL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("OUTPUT_TTL_HOURS", "2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q, want 9090", cfg.Port)
	}
	if cfg.OutputBaseURL != "http://localhost:9090/output" {
		t.Fatalf("output base url = %q, want derived from port", cfg.OutputBaseURL)
	}
	if cfg.MaxUploadBytes != 1<<20 {
		t.Fatalf("max upload bytes = %d, want %d", cfg.MaxUploadBytes, int64(1<<20))
	}
	if cfg.OutputTTL != 2*time.Hour {
		t.Fatalf("output ttl = %v, want 2h", cfg.OutputTTL)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSOrigins) != len(want) {
		t.Fatalf("cors origins = %v, want %v", cfg.CORSOrigins, want)
	}
	for i := range want {
		if cfg.CORSOrigins[i] != want[i] {
			t.Fatalf("cors origins[%d] = %q, want %q", i, cfg.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadConfigRejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "-1")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for negative MAX_UPLOAD_BYTES")
	}
}
