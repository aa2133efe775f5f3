package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{
  "generation": {"model": "llama3:8b"},
  "batch": {"max_daily_questions": 200},
  "storage": {"postgres": {"host": "db", "dbname": "studygen"}}
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	// File values win.
	if cfg.Generation.Model != "llama3:8b" {
		t.Errorf("model = %q", cfg.Generation.Model)
	}
	if cfg.Batch.MaxDailyQuestions != 200 {
		t.Errorf("max daily = %d", cfg.Batch.MaxDailyQuestions)
	}

	// Unset values fall back to defaults.
	if cfg.Batch.MaxConcurrent != 3 {
		t.Errorf("max concurrent = %d, want default 3", cfg.Batch.MaxConcurrent)
	}
	if cfg.Scheduler.CronSpec != "@daily" {
		t.Errorf("cron spec = %q", cfg.Scheduler.CronSpec)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("ollama url = %q", cfg.Ollama.BaseURL)
	}
	if len(cfg.Exams.Distributions["20"]) != 2 {
		t.Errorf("distributions = %+v", cfg.Exams.Distributions)
	}

	if got := cfg.Storage.Postgres.DSN(); got != "postgres://:@db:5432/studygen?sslmode=disable" {
		t.Errorf("dsn = %q", got)
	}
	if cfg.Storage.Redis.Addr() != "" {
		t.Errorf("redis addr should be empty when unconfigured")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{"batch": {"max_concurrent": 0}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected invalid batch config to be rejected")
	}
}
