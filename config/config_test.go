package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.MemoryExpiryDays != 30 {
		t.Fatalf("MemoryExpiryDays = %d, want 30", cfg.MemoryExpiryDays)
	}
	if cfg.MemoryPath != "" {
		t.Fatalf("MemoryPath = %q, want empty default", cfg.MemoryPath)
	}
	if cfg.CompletionTimeout != 20*time.Second {
		t.Fatalf("CompletionTimeout = %v, want 20s", cfg.CompletionTimeout)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("MEMORY_EXPIRY_DAYS", "7")
	t.Setenv("LOOKUP_TIMEOUT", "500ms")
	t.Setenv("ANTHROPIC_API_KEY", " sk-test \n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" {
		t.Fatalf("BindAddr = %q, want explicit value", cfg.BindAddr)
	}
	if cfg.MemoryExpiryDays != 7 {
		t.Fatalf("MemoryExpiryDays = %d, want 7", cfg.MemoryExpiryDays)
	}
	if cfg.LookupTimeout != 500*time.Millisecond {
		t.Fatalf("LookupTimeout = %v, want 500ms", cfg.LookupTimeout)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Fatalf("AnthropicAPIKey = %q, want trimmed value", cfg.AnthropicAPIKey)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MEMORY_EXPIRY_DAYS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero expiry days")
	}

	setCoreEnvEmpty(t)
	t.Setenv("COMPLETION_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"DATABASE_URL",
		"ANTHROPIC_API_KEY",
		"COMPLETION_MODEL",
		"COMPLETION_TIMEOUT",
		"LOOKUP_TIMEOUT",
		"LOOKUP_CACHE_SIZE",
		"LOOKUP_CACHE_TTL",
		"MEMORY_PATH",
		"MEMORY_COMPRESS",
		"MEMORY_EXPIRY_DAYS",
		"MEMORY_LIMIT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
