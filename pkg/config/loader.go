package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "DISPATCH_"
	configEnvVar = "CONFIG_PATH"
)

// Loader loads configuration from defaults, an optional YAML file, and
// environment variables.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader builds a Loader with sensible default search paths.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/dispatch/config.yaml",
		},
		envPrefix: envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths overrides the file search paths.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

// Load resolves the full configuration: defaults, then YAML file (optional),
// then environment, then the well-known named variables, which always win.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyNamedEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        "dispatch-core",
		"app.version":     "0.1.0",
		"app.environment": "development",

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.migrations_dir":     "migrations",
		"database.auto_migrate":       true,

		"cache.enabled":     true,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 24 * time.Hour,
		"cache.max_entries": 100000,

		"distance.average_speed_kmh":  40.0,
		"distance.transport_timeout":  10 * time.Second,
		"distance.matrix_cache_ttl":   24 * time.Hour,

		"optimize.max_optimization_time": 120 * time.Second,
		"optimize.solution_limit":        50000,
		"optimize.drop_penalty":          100000.0,

		"tracking.location_retention_days": 90,
		"tracking.eta_cache_ttl":           300 * time.Second,
		"tracking.significant_eta_change":  10 * time.Minute,
		"tracking.delay_recheck_interval":  5 * time.Minute,
		"tracking.ping_interval":           30 * time.Second,
		"tracking.idle_timeout":            60 * time.Second,

		"auth.algorithm":                     "HS256",
		"auth.access_token_expire_minutes":   15 * time.Minute,
		"auth.refresh_token_expire_days":     7 * 24 * time.Hour,

		"metrics.enabled":   true,
		"metrics.namespace": "dispatch",
		"metrics.subsystem": "core",

		"tracing.enabled":      false,
		"tracing.service_name": "dispatch-core",
		"tracing.sample_rate":  0.1,
	}
	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}
	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, l.envPrefix)), "_", ".")
	}), nil)
}

// applyNamedEnvOverrides layers the conventional deployment variable names
// (DATABASE_URL, SECRET_KEY, ...) on top of the DISPATCH_-prefixed koanf
// convention, since an external deployment may only know those names.
func applyNamedEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.Auth.SecretKey = v
	}
	if v := os.Getenv("ALGORITHM"); v != "" {
		cfg.Auth.Algorithm = v
	}
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.AccessTokenExpireMinutes = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_EXPIRE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.RefreshTokenExpireDays = time.Duration(n) * 24 * time.Hour
		}
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		cfg.Distance.GoogleMapsAPIKey = v
	}
	if v := os.Getenv("OSRM_BASE_URL"); v != "" {
		cfg.Distance.OSRMBaseURL = v
	}
}

// MustLoad loads configuration or panics.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load loads configuration with default search paths.
func Load() (*Config, error) {
	return NewLoader().Load()
}
