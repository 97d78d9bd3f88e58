package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("MUNINN_DB_DSN", ":memory:")
	t.Setenv("MUNINN_CATALOG_URL", "http://localhost:9999")
	t.Setenv("MUNINN_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("unexpected default backend: %q", cfg.DBBackend)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("unexpected default http port: %d", cfg.HTTPPort)
	}
	if cfg.Tuning.WeightDefault != 1.0 {
		t.Fatalf("unexpected default weight: %v", cfg.Tuning.WeightDefault)
	}
	if !cfg.RedisDisableOnError {
		t.Fatal("expected the cache circuit breaker to default on")
	}
}

func TestLoadParsesRedisCircuitBreakerFlag(t *testing.T) {
	t.Setenv("MUNINN_DB_DSN", ":memory:")
	t.Setenv("MUNINN_REDIS_DISABLE_ON_ERROR", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RedisDisableOnError {
		t.Fatal("expected the cache circuit breaker to be off")
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("MUNINN_DB_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without a DSN")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("MUNINN_DB_DSN", ":memory:")
	t.Setenv("MUNINN_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail with an unknown backend")
	}
}

func TestLoadAppliesTuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("weight_positive_factor: 1.5\nrating_vote_threshold: 10\n"), 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}

	t.Setenv("MUNINN_DB_DSN", ":memory:")
	t.Setenv("MUNINN_TUNING_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Tuning.WeightPositiveFactor != 1.5 {
		t.Fatalf("tuning file override not applied: %v", cfg.Tuning.WeightPositiveFactor)
	}
	if cfg.Tuning.RatingVoteThreshold != 10 {
		t.Fatalf("tuning file override not applied: %d", cfg.Tuning.RatingVoteThreshold)
	}
	// Untouched keys keep their defaults.
	if cfg.Tuning.WeightMax != 10.0 {
		t.Fatalf("unexpected weight max: %v", cfg.Tuning.WeightMax)
	}
}

func TestLoadRejectsInvalidTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("weight_negative_factor: 1.5\n"), 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}

	t.Setenv("MUNINN_DB_DSN", ":memory:")
	t.Setenv("MUNINN_TUNING_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail with an out-of-range reinforcement factor")
	}
}
