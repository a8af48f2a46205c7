package skyfetch

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}

	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected MaxRetries=%d, got %d", DefaultMaxRetries, cfg.MaxRetries)
	}
	if cfg.BaseDelay != DefaultBaseDelay {
		t.Errorf("Expected BaseDelay=%v, got %v", DefaultBaseDelay, cfg.BaseDelay)
	}
	if cfg.CachePrefix != DefaultCachePrefix {
		t.Errorf("Expected CachePrefix=%q, got %q", DefaultCachePrefix, cfg.CachePrefix)
	}
	if cfg.CurrentTTL != DefaultCurrentTTL || cfg.ForecastTTL != DefaultForecastTTL {
		t.Errorf("Unexpected TTLs: current=%v forecast=%v", cfg.CurrentTTL, cfg.ForecastTTL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SKYFETCH_MAX_RETRIES", "5")
	t.Setenv("SKYFETCH_TIMEOUT", "2s")
	t.Setenv("SKYFETCH_CURRENT_TTL", "1m")
	t.Setenv("SKYFETCH_CACHE_PREFIX", "wx_")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}

	if cfg.MaxRetries != 5 {
		t.Errorf("Expected MaxRetries=5, got %d", cfg.MaxRetries)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("Expected Timeout=2s, got %v", cfg.Timeout)
	}
	if cfg.CurrentTTL != time.Minute {
		t.Errorf("Expected CurrentTTL=1m, got %v", cfg.CurrentTTL)
	}
	if cfg.CachePrefix != "wx_" {
		t.Errorf("Expected CachePrefix=wx_, got %q", cfg.CachePrefix)
	}
}

func TestFromEnvInvalidValues(t *testing.T) {
	t.Setenv("SKYFETCH_MAX_RETRIES", "not-a-number")
	if _, err := FromEnv(); err == nil {
		t.Error("Expected error for unparseable integer")
	}
}

func TestFromEnvValidation(t *testing.T) {
	t.Setenv("SKYFETCH_MAX_RETRIES", "99")
	if _, err := FromEnv(); err == nil {
		t.Error("Expected validation error for out-of-range retries")
	}
}

func TestConfigOptions(t *testing.T) {
	t.Setenv("SKYFETCH_MAX_RETRIES", "4")
	t.Setenv("SKYFETCH_CURRENT_TTL", "90s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}

	client := New(cfg.Options()...)
	defer client.Close()

	if !client.IsValid() {
		t.Fatalf("Config-derived client should validate: %v", client.ValidationError())
	}
	if client.maxRetries != 4 {
		t.Errorf("Expected maxRetries=4, got %d", client.maxRetries)
	}
	if got := client.ttlPolicy("https://api.example.com/current"); got != 90*time.Second {
		t.Errorf("Expected configured current TTL, got %v", got)
	}
	if got := client.ttlPolicy("https://api.example.com/forecast"); got != DefaultForecastTTL {
		t.Errorf("Expected default forecast TTL, got %v", got)
	}
}
