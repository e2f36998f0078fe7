// Package config loads, validates, watches, and snapshots the regwave
// configuration file.
package config

import (
	"time"

	"github.com/regwave/regwave/internal/models"
)

// Config is the full configuration tree. YAML keys follow the struct tags;
// every field has a default from Default().
type Config struct {
	LogLevel    string            `yaml:"logLevel"`
	MetricsPort int               `yaml:"metricsPort"` // 0 disables the metrics endpoint
	AuditLog    string            `yaml:"auditLog"`    // JSONL audit sink path, empty disables
	Cache       CacheConfig       `yaml:"cache"`
	Propagation PropagationConfig `yaml:"propagation"`
	NATS        NATSConfig        `yaml:"nats"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// CacheConfig tunes the tag cache.
type CacheConfig struct {
	DefaultTTL    time.Duration `yaml:"defaultTTL"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	MaxEntries    int           `yaml:"maxEntries"`
}

// PropagationConfig holds the default engine options; per-call options
// still override them.
type PropagationConfig struct {
	MaxDepth        int     `yaml:"maxDepth"`        // [1,20]
	ImpactThreshold float64 `yaml:"impactThreshold"` // [0,1]
	IncludeIndirect bool    `yaml:"includeIndirect"`
}

// NATSConfig enables the NATS event publisher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// TracingConfig enables OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"` // OTLP gRPC endpoint
	TLSCAPath   string `yaml:"tlsCAPath"`
	TLSInsecure bool   `yaml:"tlsInsecure"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		LogLevel:    "info",
		MetricsPort: 0,
		Cache: CacheConfig{
			DefaultTTL:    30 * time.Minute,
			SweepInterval: 5 * time.Minute,
			MaxEntries:    16384,
		},
		Propagation: PropagationConfig{
			MaxDepth:        10,
			ImpactThreshold: 0.01,
			IncludeIndirect: true,
		},
		NATS: NATSConfig{
			URL: "nats://127.0.0.1:4222",
		},
	}
}

// Validate checks every range the engines depend on.
func (c *Config) Validate() error {
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return models.NewInvalidError("metricsPort %d outside [0,65535]", c.MetricsPort)
	}
	if c.Cache.DefaultTTL <= 0 {
		return models.NewInvalidError("cache.defaultTTL must be positive")
	}
	if c.Cache.SweepInterval <= 0 {
		return models.NewInvalidError("cache.sweepInterval must be positive")
	}
	if c.Cache.MaxEntries < 1 {
		return models.NewInvalidError("cache.maxEntries must be at least 1")
	}
	if c.Propagation.MaxDepth < 1 || c.Propagation.MaxDepth > 20 {
		return models.NewInvalidError("propagation.maxDepth %d outside [1,20]", c.Propagation.MaxDepth)
	}
	if c.Propagation.ImpactThreshold < 0 || c.Propagation.ImpactThreshold > 1 {
		return models.NewInvalidError("propagation.impactThreshold %.4f outside [0,1]", c.Propagation.ImpactThreshold)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return models.NewInvalidError("nats.url required when nats is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return models.NewInvalidError("tracing.endpoint required when tracing is enabled")
	}
	return nil
}
