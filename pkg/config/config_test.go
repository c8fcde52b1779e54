package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
server:
  port: 8081
ingest:
  coins: [bitcoin, ethereum]
  currency: usd
  interval: 30s
  raw_dir: data/raw
storage:
  backend: memory
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
	if cfg.Ingest.Interval != 30*time.Second {
		t.Fatalf("unexpected interval %v", cfg.Ingest.Interval)
	}
	if cfg.Backend.Type != "direct" {
		t.Fatalf("backend should default to direct, got %s", cfg.Backend.Type)
	}
	if cfg.Cache.Backend != "memory" {
		t.Fatalf("cache should default to memory, got %s", cfg.Cache.Backend)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	bad := minimalYAML + "\nbackend:\n  type: carrier-pigeon\n"
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected validation error for bad backend type")
	}
}

func TestLoadRejectsDuckDBWithoutPath(t *testing.T) {
	bad := `
environment: test
ingest:
  coins: [bitcoin]
  currency: usd
  raw_dir: data/raw
storage:
  backend: duckdb
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected error for duckdb backend without path")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	bad := minimalYAML + "\nbackend:\n  type: kafka\n"
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected error for kafka backend without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("COINS", "solana,cardano")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("COINGECKO_API_KEY", "secret")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Ingest.Coins) != 2 || cfg.Ingest.Coins[0] != "solana" {
		t.Fatalf("COINS override not applied: %v", cfg.Ingest.Coins)
	}
	if cfg.Ingest.APIKey != "secret" {
		t.Fatalf("api key override not applied")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
