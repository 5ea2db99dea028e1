package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/steveyegge/taskgate/internal/gates"
	"github.com/steveyegge/taskgate/internal/logging"
	"github.com/steveyegge/taskgate/internal/pipeline"
)

// PipelineConfig holds the tunables of a taskgate process
type PipelineConfig struct {
	// CacheTTL is how long a task-type lookup is reused
	// Default: 10s, Range: 1s-1h
	CacheTTL time.Duration

	// NegativeCacheTTL is how long an unknown task type is remembered
	// Default: 2s, must not exceed CacheTTL
	NegativeCacheTTL time.Duration

	// CacheSize bounds the number of cached task types
	// Default: 1024, Range: 1-1000000
	CacheSize int

	// MaxConsecutiveFailures locks an agent out after this many failed
	// submissions in a row
	// Default: 5, Range: 1-1000
	MaxConsecutiveFailures int

	// MinHourlyRate and HighHourlyRate bound the implied USD/hour of a task
	// Default: 5 and 500
	MinHourlyRate  float64
	HighHourlyRate float64

	// MinLeadTime is how far ahead datetime_start must be
	// Default: 1h
	MinLeadTime time.Duration

	SchemaBaseURL string
	ParallelGates bool

	LogLevel string
	LogJSON  bool

	// RedisAddr switches the failure tracker to Redis when set
	RedisAddr string
	// RedisRetention expires idle failure counters. 0 keeps them until reset.
	RedisRetention time.Duration

	// PolicyFile extends the built-in content policy tiers
	PolicyFile string
}

// DefaultPipelineConfig returns the default configuration
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		CacheTTL:               pipeline.DefaultCacheTTL,
		NegativeCacheTTL:       pipeline.DefaultNegativeCacheTTL,
		CacheSize:              pipeline.DefaultCacheSize,
		MaxConsecutiveFailures: pipeline.DefaultMaxConsecutiveFailures,
		MinHourlyRate:          gates.DefaultMinHourlyRate,
		HighHourlyRate:         gates.DefaultHighHourlyRate,
		MinLeadTime:            gates.DefaultMinLeadTime,
		SchemaBaseURL:          pipeline.DefaultSchemaBaseURL,
		LogLevel:               string(logging.InfoLevel),
	}
}

// Validate checks if the configuration has valid values
func (c PipelineConfig) Validate() error {
	if c.CacheTTL < time.Second || c.CacheTTL > time.Hour {
		return fmt.Errorf("cache_ttl must be between 1s and 1h (got %s)", c.CacheTTL)
	}
	if c.NegativeCacheTTL <= 0 || c.NegativeCacheTTL > c.CacheTTL {
		return fmt.Errorf("negative_cache_ttl must be positive and at most cache_ttl (got %s, cache_ttl %s)",
			c.NegativeCacheTTL, c.CacheTTL)
	}
	if c.CacheSize < 1 || c.CacheSize > 1000000 {
		return fmt.Errorf("cache_size must be between 1 and 1000000 (got %d)", c.CacheSize)
	}
	if c.MaxConsecutiveFailures < 1 || c.MaxConsecutiveFailures > 1000 {
		return fmt.Errorf("max_consecutive_failures must be between 1 and 1000 (got %d)", c.MaxConsecutiveFailures)
	}
	if c.MinHourlyRate <= 0 {
		return fmt.Errorf("min_hourly_rate must be positive (got %.2f)", c.MinHourlyRate)
	}
	if c.HighHourlyRate <= c.MinHourlyRate {
		return fmt.Errorf("high_hourly_rate (%.2f) must exceed min_hourly_rate (%.2f)", c.HighHourlyRate, c.MinHourlyRate)
	}
	if c.MinLeadTime < 0 {
		return fmt.Errorf("min_lead_time cannot be negative (got %s)", c.MinLeadTime)
	}
	if c.RedisRetention < 0 {
		return fmt.Errorf("redis_retention cannot be negative (got %s)", c.RedisRetention)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a human-readable representation of the config
func (c PipelineConfig) String() string {
	return fmt.Sprintf(
		"PipelineConfig{CacheTTL: %s, NegativeCacheTTL: %s, CacheSize: %d, MaxConsecutiveFailures: %d, "+
			"MinHourlyRate: %.2f, HighHourlyRate: %.2f, MinLeadTime: %s, ParallelGates: %t, Redis: %t}",
		c.CacheTTL, c.NegativeCacheTTL, c.CacheSize, c.MaxConsecutiveFailures,
		c.MinHourlyRate, c.HighHourlyRate, c.MinLeadTime, c.ParallelGates, c.RedisAddr != "",
	)
}

// Logging returns the logger configuration
func (c PipelineConfig) Logging() *logging.Config {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = level
	}
	cfg.JSON = c.LogJSON
	return cfg
}

// PipelineOptions assembles pipeline.Config from this configuration.
// policy may be nil for the built-in tiers.
func (c PipelineConfig) PipelineOptions(
	store pipeline.Store,
	tracker pipeline.FailureTracker,
	policy *gates.ContentPolicy,
	logger *slog.Logger,
) *pipeline.Config {
	return &pipeline.Config{
		Store:   store,
		Tracker: tracker,
		GateOptions: gates.Options{
			MinLeadTime:    c.MinLeadTime,
			MinHourlyRate:  c.MinHourlyRate,
			HighHourlyRate: c.HighHourlyRate,
			Policy:         policy,
		},
		Parallel:               c.ParallelGates,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
		CacheTTL:               c.CacheTTL,
		NegativeCacheTTL:       c.NegativeCacheTTL,
		CacheSize:              c.CacheSize,
		SchemaBaseURL:          c.SchemaBaseURL,
		Logger:                 logger,
	}
}

// PipelineConfigFromEnv creates a PipelineConfig from environment variables,
// falling back to defaults.
//
// Environment variables:
//   - TASKGATE_CACHE_TTL, TASKGATE_NEGATIVE_CACHE_TTL (durations)
//   - TASKGATE_CACHE_SIZE
//   - TASKGATE_MAX_CONSECUTIVE_FAILURES
//   - TASKGATE_MIN_HOURLY_RATE, TASKGATE_HIGH_HOURLY_RATE
//   - TASKGATE_MIN_LEAD_TIME (duration)
//   - TASKGATE_SCHEMA_BASE_URL
//   - TASKGATE_PARALLEL_GATES
//   - TASKGATE_LOG_LEVEL, TASKGATE_LOG_JSON
//   - TASKGATE_REDIS_ADDR, TASKGATE_REDIS_RETENTION
//   - TASKGATE_POLICY_FILE
//
// Returns an error if any environment variable has an invalid value.
func PipelineConfigFromEnv() (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	parsers := []func() error{
		func() error { return parseEnvDuration("TASKGATE_CACHE_TTL", &cfg.CacheTTL) },
		func() error { return parseEnvDuration("TASKGATE_NEGATIVE_CACHE_TTL", &cfg.NegativeCacheTTL) },
		func() error { return parseEnvInt("TASKGATE_CACHE_SIZE", &cfg.CacheSize) },
		func() error { return parseEnvInt("TASKGATE_MAX_CONSECUTIVE_FAILURES", &cfg.MaxConsecutiveFailures) },
		func() error { return parseEnvFloat("TASKGATE_MIN_HOURLY_RATE", &cfg.MinHourlyRate) },
		func() error { return parseEnvFloat("TASKGATE_HIGH_HOURLY_RATE", &cfg.HighHourlyRate) },
		func() error { return parseEnvDuration("TASKGATE_MIN_LEAD_TIME", &cfg.MinLeadTime) },
		func() error { return parseEnvString("TASKGATE_SCHEMA_BASE_URL", &cfg.SchemaBaseURL) },
		func() error { return parseEnvBool("TASKGATE_PARALLEL_GATES", &cfg.ParallelGates) },
		func() error { return parseEnvString("TASKGATE_LOG_LEVEL", &cfg.LogLevel) },
		func() error { return parseEnvBool("TASKGATE_LOG_JSON", &cfg.LogJSON) },
		func() error { return parseEnvString("TASKGATE_REDIS_ADDR", &cfg.RedisAddr) },
		func() error { return parseEnvDuration("TASKGATE_REDIS_RETENTION", &cfg.RedisRetention) },
		func() error { return parseEnvString("TASKGATE_POLICY_FILE", &cfg.PolicyFile) },
	}
	for _, parse := range parsers {
		if err := parse(); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid pipeline configuration from environment: %w", err)
	}
	return cfg, nil
}
