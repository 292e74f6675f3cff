package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the conversational agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	DatabaseURL string

	AnthropicAPIKey   string
	CompletionModel   string
	CompletionTimeout time.Duration

	LookupTimeout   time.Duration
	LookupCacheSize int64
	LookupCacheTTL  time.Duration

	MemoryPath       string
	MemoryCompress   bool
	MemoryExpiryDays int
	MemoryLimit      int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "cartmind"),
		ShutdownTimeout:   15 * time.Second,
		DatabaseURL:       trimSpaceEnv("DATABASE_URL"),
		AnthropicAPIKey:   trimSpaceEnv("ANTHROPIC_API_KEY"),
		CompletionModel:   envOrDefault("COMPLETION_MODEL", ""),
		CompletionTimeout: 20 * time.Second,
		LookupTimeout:     3 * time.Second,
		LookupCacheSize:   4096,
		LookupCacheTTL:    30 * time.Second,
		MemoryPath:        envOrDefault("MEMORY_PATH", ""),
		MemoryCompress:    false,
		MemoryExpiryDays:  30,
		MemoryLimit:       5,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LookupTimeout, err = durationFromEnv("LOOKUP_TIMEOUT", cfg.LookupTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LookupCacheTTL, err = durationFromEnv("LOOKUP_CACHE_TTL", cfg.LookupCacheTTL)
	if err != nil {
		return Config{}, err
	}
	cacheSize, err := intFromEnv("LOOKUP_CACHE_SIZE", int(cfg.LookupCacheSize))
	if err != nil {
		return Config{}, err
	}
	cfg.LookupCacheSize = int64(cacheSize)
	cfg.MemoryExpiryDays, err = intFromEnv("MEMORY_EXPIRY_DAYS", cfg.MemoryExpiryDays)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryLimit, err = intFromEnv("MEMORY_LIMIT", cfg.MemoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryCompress, err = boolFromEnv("MEMORY_COMPRESS", cfg.MemoryCompress)
	if err != nil {
		return Config{}, err
	}

	if cfg.MemoryExpiryDays <= 0 {
		return Config{}, fmt.Errorf("MEMORY_EXPIRY_DAYS must be positive")
	}
	if cfg.MemoryLimit <= 0 {
		return Config{}, fmt.Errorf("MEMORY_LIMIT must be positive")
	}
	if cfg.LookupCacheSize <= 0 {
		return Config{}, fmt.Errorf("LOOKUP_CACHE_SIZE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimSpaceEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimSpaceEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
