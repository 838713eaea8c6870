// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure, loaded by Loader from
// defaults, a config file and the environment (in that order).
type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Audit    AuditConfig    `koanf:"audit"`
	Planner  PlannerConfig  `koanf:"planner"`
	Stimuli  StimuliConfig  `koanf:"stimuli"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig controls pkg/logger.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig controls pkg/metrics' Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig controls OpenTelemetry span export for the four core operations.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig configures the Postgres pool backing internal/approval's
// durable store.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // postgres
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns a driver connection string.
func (d DatabaseConfig) DSN() string {
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
		)
	default:
		return ""
	}
}

// CacheConfig configures pkg/cache's plan cache backend.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // in-memory backend only
}

// Address returns the cache server's network address.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuditConfig configures pkg/audit.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Backend         string        `koanf:"backend"`
	FilePath        string        `koanf:"file_path"`
	BufferSize      int           `koanf:"buffer_size"`
	FlushPeriod     time.Duration `koanf:"flush_period"`
	ExcludeMethods  []string      `koanf:"exclude_methods"`
	IncludeRequest  bool          `koanf:"include_request"`
	IncludeResponse bool          `koanf:"include_response"`
	MaskFields      []string      `koanf:"mask_fields"`
}

// PlannerConfig carries the cut-weighting coefficients and feature flags
// that spec §6 requires be per-call inputs, not process-global state.
// Loader populates this with the defaults from spec §4.2. Nothing in this
// module reads it: internal/core builds a fresh planner.Options per call
// from the rule pack's Policy (or planner.DefaultOptions when no pack is
// given), so a caller overriding weights never leaks into another
// caller's plan.
type PlannerConfig struct {
	NodeSplit bool    `koanf:"node_split"`
	CBT       float64 `koanf:"cbt"`
	Alpha     float64 `koanf:"alpha"`
	Beta      float64 `koanf:"beta"`
	Gamma     float64 `koanf:"gamma"`
	Delta     float64 `koanf:"delta"`
	Epsilon   float64 `koanf:"epsilon"`
	Zeta      float64 `koanf:"zeta"`
	CBScale   float64 `koanf:"cb_scale"`
	CBMax     float64 `koanf:"cb_max"`
	RSTScale  float64 `koanf:"rst_scale"`
}

// StimuliConfig carries run_stimuli defaults.
type StimuliConfig struct {
	KPaths      int   `koanf:"k_paths"`
	DefaultSeed int64 `koanf:"default_seed"`
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Planner.CBMax < 0 {
		errs = append(errs, "planner.cb_max must be non-negative")
	}
	if c.Stimuli.KPaths < 0 {
		errs = append(errs, "stimuli.k_paths must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether the app is running in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app is running in a production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
