// Package config loads this module's configuration from defaults, an
// optional YAML file, and environment variables, in that priority order.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration tree.
type Config struct {
	App        AppConfig        `koanf:"app"`
	Log        LogConfig        `koanf:"log"`
	Database   DatabaseConfig   `koanf:"database"`
	Cache      CacheConfig      `koanf:"cache"`
	Distance   DistanceConfig   `koanf:"distance"`
	Optimize   OptimizeConfig   `koanf:"optimize"`
	Tracking   TrackingConfig   `koanf:"tracking"`
	Auth       AuthConfig       `koanf:"auth"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Tracing    TracingConfig    `koanf:"tracing"`
}

// AppConfig carries process identity.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

// LogConfig mirrors pkg/logger.Config.
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Output     string `koanf:"output"`
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

// DatabaseConfig configures the Postgres connection used by the
// optimization service, location ingestor and route tracker to persist
// their rows.
type DatabaseConfig struct {
	URL             string        `koanf:"url"` // DATABASE_URL
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsDir   string        `koanf:"migrations_dir"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// CacheConfig configures the durable tier of the matrix cache.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// Address returns host:port for the cache backend.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DistanceConfig configures the distance provider chain.
type DistanceConfig struct {
	GoogleMapsAPIKey  string        `koanf:"google_maps_api_key"` // GOOGLE_MAPS_API_KEY
	OSRMBaseURL       string        `koanf:"osrm_base_url"`       // OSRM_BASE_URL
	AverageSpeedKMH   float64       `koanf:"average_speed_kmh"`
	TransportTimeout  time.Duration `koanf:"transport_timeout"`
	MatrixCacheTTL    time.Duration `koanf:"matrix_cache_ttl"`
}

// OptimizeConfig configures the CP strategy and its orchestration.
type OptimizeConfig struct {
	MaxOptimizationTime time.Duration `koanf:"max_optimization_time"`
	SolutionLimit       int           `koanf:"solution_limit"`
	DropPenalty         float64       `koanf:"drop_penalty"`
}

// TrackingConfig configures the live tracking engine.
type TrackingConfig struct {
	LocationRetentionDays int           `koanf:"location_retention_days"`
	ETACacheTTL           time.Duration `koanf:"eta_cache_ttl"`
	SignificantETAChange  time.Duration `koanf:"significant_eta_change"`
	DelayRecheckInterval  time.Duration `koanf:"delay_recheck_interval"`
	PingInterval          time.Duration `koanf:"ping_interval"`
	IdleTimeout           time.Duration `koanf:"idle_timeout"`
}

// AuthConfig configures bearer-token verification for live tracking
// subscribers.
type AuthConfig struct {
	SecretKey                string        `koanf:"secret_key"` // SECRET_KEY
	Algorithm                string        `koanf:"algorithm"`  // ALGORITHM
	AccessTokenExpireMinutes time.Duration `koanf:"access_token_expire_minutes"`
	RefreshTokenExpireDays   time.Duration `koanf:"refresh_token_expire_days"`
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate checks invariants that would otherwise surface as confusing
// runtime errors deep in a component.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level))
	}

	if c.Optimize.MaxOptimizationTime < 120*time.Second {
		// the solver budget has a hard 120s floor
		c.Optimize.MaxOptimizationTime = 120 * time.Second
	}

	if c.Distance.AverageSpeedKMH <= 0 {
		c.Distance.AverageSpeedKMH = 40.0
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether the environment is development-like.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}
