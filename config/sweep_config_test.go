package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.ScanMaxMessages != 500 || cfg.ScanFetchChunk != 50 {
		t.Errorf("scan tuning = %d/%d, want 500/50", cfg.ScanMaxMessages, cfg.ScanFetchChunk)
	}
	if cfg.QuotaPerSecond != 200 || cfg.QuotaBurst != 250 {
		t.Errorf("quota = %d/%d, want 200/250", cfg.QuotaPerSecond, cfg.QuotaBurst)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("retry base = %v, want 500ms", cfg.RetryBaseDelay)
	}
	if !cfg.IsDevelopment() {
		t.Error("default environment is not development")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "cid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("SCAN_MAX_MESSAGES", "2000")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://other.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || !cfg.IsProduction() {
		t.Errorf("port/env = %q/%q", cfg.Port, cfg.Environment)
	}
	if cfg.ScanMaxMessages != 2000 {
		t.Errorf("max messages = %d, want 2000", cfg.ScanMaxMessages)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadRequiresOAuthCredentials(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("load succeeded without oauth credentials")
	}
}
