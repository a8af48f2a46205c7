package skyfetch

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds environment-driven client settings. The app's composition
// root loads it once and hands the resulting options to New.
type Config struct {
	MaxRetries      int           `validate:"gte=1,lte=10"`
	BaseDelay       time.Duration `validate:"gt=0"`
	MaxDelay        time.Duration `validate:"gtefield=BaseDelay"`
	Timeout         time.Duration `validate:"gt=0"`
	MaxConcurrency  int           `validate:"gte=1,lte=64"`
	MaxCacheEntries int           `validate:"gte=1"`
	CachePrefix     string        `validate:"required"`
	IdleTimeout     time.Duration `validate:"gt=0"`
	SweepInterval   time.Duration `validate:"gt=0"`
	CurrentTTL      time.Duration `validate:"gt=0"`
	ForecastTTL     time.Duration `validate:"gt=0"`
	FallbackTTL     time.Duration `validate:"gt=0"`
	Debug           bool
}

// FromEnv reads configuration from SKYFETCH_* environment variables with
// sensible defaults, loading a .env file when present.
func FromEnv() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Debug:       os.Getenv("SKYFETCH_DEBUG") == "true",
		CachePrefix: getenvDefault("SKYFETCH_CACHE_PREFIX", DefaultCachePrefix),
	}

	var err error
	cfg.MaxRetries, err = getenvInt("SKYFETCH_MAX_RETRIES", DefaultMaxRetries)
	if err != nil {
		return nil, err
	}
	cfg.MaxConcurrency, err = getenvInt("SKYFETCH_MAX_CONCURRENCY", DefaultMaxConcurrency)
	if err != nil {
		return nil, err
	}
	cfg.MaxCacheEntries, err = getenvInt("SKYFETCH_MAX_CACHE_ENTRIES", DefaultMaxEntries)
	if err != nil {
		return nil, err
	}

	for _, d := range []struct {
		name string
		def  time.Duration
		dst  *time.Duration
	}{
		{"SKYFETCH_BASE_DELAY", DefaultBaseDelay, &cfg.BaseDelay},
		{"SKYFETCH_MAX_DELAY", DefaultMaxDelay, &cfg.MaxDelay},
		{"SKYFETCH_TIMEOUT", DefaultTimeout, &cfg.Timeout},
		{"SKYFETCH_IDLE_TIMEOUT", DefaultIdleTimeout, &cfg.IdleTimeout},
		{"SKYFETCH_SWEEP_INTERVAL", DefaultSweepInterval, &cfg.SweepInterval},
		{"SKYFETCH_CURRENT_TTL", DefaultCurrentTTL, &cfg.CurrentTTL},
		{"SKYFETCH_FORECAST_TTL", DefaultForecastTTL, &cfg.ForecastTTL},
		{"SKYFETCH_FALLBACK_TTL", DefaultTTL, &cfg.FallbackTTL},
	} {
		*d.dst, err = getenvDuration(d.name, d.def)
		if err != nil {
			return nil, err
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid skyfetch configuration: %w", err)
	}

	return cfg, nil
}

// Options converts the config into client construction options.
func (cfg *Config) Options() []Option {
	opts := []Option{
		WithMaxRetries(cfg.MaxRetries),
		WithBaseDelay(cfg.BaseDelay),
		WithMaxDelay(cfg.MaxDelay),
		WithTimeout(cfg.Timeout),
		WithMaxConcurrency(cfg.MaxConcurrency),
		WithMaxCacheEntries(cfg.MaxCacheEntries),
		WithCachePrefix(cfg.CachePrefix),
		WithIdleTimeout(cfg.IdleTimeout),
		WithSweepInterval(cfg.SweepInterval),
		WithTTLPolicy(cfg.ttlPolicy()),
	}
	if cfg.Debug {
		opts = append(opts, WithSimpleLogger())
	}
	return opts
}

func (cfg *Config) ttlPolicy() TTLPolicy {
	current := cfg.CurrentTTL
	forecast := cfg.ForecastTTL
	fallback := cfg.FallbackTTL

	return func(rawURL string) time.Duration {
		switch DefaultTTLPolicy(rawURL) {
		case DefaultCurrentTTL:
			return current
		case DefaultForecastTTL:
			return forecast
		default:
			return fallback
		}
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
