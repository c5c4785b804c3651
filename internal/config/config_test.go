package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_TYPE", "SESSION_DURATION", "MIGRATIONS_PATH", "TRUSTED_PROXIES"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.StorageType != "sqlite" {
		t.Errorf("StorageType = %q, want %q", cfg.StorageType, "sqlite")
	}
	if cfg.SessionDuration != 24*time.Hour {
		t.Errorf("SessionDuration = %v, want 24h", cfg.SessionDuration)
	}
	if cfg.MigrationsPath != "./migrations" {
		t.Errorf("MigrationsPath = %q, want ./migrations", cfg.MigrationsPath)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Errorf("TrustedProxies = %v, want none", cfg.TrustedProxies)
	}
}

func TestLoadFileEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, ,127.0.0.1")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.StorageType != "redis" {
		t.Errorf("StorageType = %q, want redis", cfg.StorageType)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
	if cfg.SessionDuration != 2*time.Hour {
		t.Errorf("SessionDuration = %v, want 2h", cfg.SessionDuration)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[0] != "10.0.0.0/8" || cfg.TrustedProxies[1] != "127.0.0.1" {
		t.Errorf("TrustedProxies = %v, want [10.0.0.0/8 127.0.0.1]", cfg.TrustedProxies)
	}
}

func TestLoadFileReadsEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "STORAGE_TYPE=memory\nLOG_LEVEL=debug\nSES_FROM_EMAIL=hello@example.com\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFile(envFile)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.StorageType != "memory" {
		t.Errorf("StorageType = %q, want memory", cfg.StorageType)
	}
	if cfg.SESFromEmail != "hello@example.com" {
		t.Errorf("SESFromEmail = %q, want hello@example.com", cfg.SESFromEmail)
	}
	// environment beats the file
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}
