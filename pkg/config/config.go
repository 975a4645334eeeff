package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/pluginhost/pkg/disabled"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

// Config holds all application configuration
type Config struct {
	// Plugin discovery and resolution
	Plugins PluginsConfig

	// Disabled-id store
	Store disabled.Options

	// Admin HTTP server
	Server ServerConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// PluginsConfig holds plugin discovery and resolution settings
type PluginsConfig struct {
	Build           string   // current host build, e.g. "231" or "IC-231.9011"
	CoreID          string   // id of the core plugin
	BundledDirs     []string // directories of plugins shipped with the host
	PluginDirs      []string // directories of user-installed plugins
	OnlyIDs         []string // selection override: load only these ids and their dependencies
	OnlyCategory    string   // selection override: load only this category
	DisableExternal bool     // selection override: load bundled plugins only
	LoadConcurrency int      // goroutines canonicalizing code roots
	UnitCacheSize   int      // positive lookups cached per loading unit
}

// ServerConfig holds admin HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// Selection returns the selection override for the resolver
func (p PluginsConfig) Selection() resolver.Selection {
	return resolver.Selection{
		OnlyIDs:         p.OnlyIDs,
		OnlyCategory:    p.OnlyCategory,
		DisableExternal: p.DisableExternal,
	}
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given). Missing files are skipped and variables already set in the
// environment are never overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Plugins:       loadPluginsConfig(),
		Store:         loadStoreConfig(),
		Server:        loadServerConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadPluginsConfig loads plugin settings from environment
func loadPluginsConfig() PluginsConfig {
	pluginDirs := getEnvList("PLUGINHOST_PLUGIN_DIRS", filepath.SplitList)
	if len(pluginDirs) == 0 {
		pluginDirs = plugins.DefaultPluginDirectories()
	}

	return PluginsConfig{
		Build:           getEnv("PLUGINHOST_BUILD", ""),
		CoreID:          getEnv("PLUGINHOST_CORE_ID", resolver.DefaultCoreID),
		BundledDirs:     getEnvList("PLUGINHOST_BUNDLED_DIRS", filepath.SplitList),
		PluginDirs:      pluginDirs,
		OnlyIDs:         getEnvList("PLUGINHOST_ONLY_IDS", splitComma),
		OnlyCategory:    getEnv("PLUGINHOST_ONLY_CATEGORY", ""),
		DisableExternal: getEnvBool("PLUGINHOST_DISABLE_EXTERNAL", false),
		LoadConcurrency: getEnvInt("PLUGINHOST_LOAD_CONCURRENCY", 8),
		UnitCacheSize:   getEnvInt("PLUGINHOST_UNIT_CACHE_SIZE", 256),
	}
}

// loadStoreConfig loads disabled-id store settings from environment
func loadStoreConfig() disabled.Options {
	return disabled.Options{
		Type:        getEnv("PLUGINHOST_STORE_TYPE", disabled.TypeFile),
		Path:        getEnv("PLUGINHOST_STORE_PATH", defaultStorePath()),
		RedisURL:    getEnv("PLUGINHOST_REDIS_URL", "redis://localhost:6379/0"),
		RedisKey:    getEnv("PLUGINHOST_REDIS_KEY", disabled.DefaultRedisKey),
		DatabaseURL: getEnv("PLUGINHOST_DATABASE_URL", ""),
	}
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            getEnv("PLUGINHOST_HTTP_ADDR", "127.0.0.1:8080"),
		ReadTimeout:     getEnvDuration("PLUGINHOST_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PLUGINHOST_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PLUGINHOST_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PLUGINHOST_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("PLUGINHOST_LOG_LEVEL", "info"),
		LogFormat:          getEnv("PLUGINHOST_LOG_FORMAT", "text"),
		MetricsEnabled:     getEnvBool("PLUGINHOST_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PLUGINHOST_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PLUGINHOST_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PLUGINHOST_OTEL_SERVICE_NAME", "pluginhost"),
		OTelServiceVersion: getEnv("PLUGINHOST_OTEL_SERVICE_VERSION", "dev"),
		OTelInsecure:       getEnvBool("PLUGINHOST_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("PLUGINHOST_OTEL_SAMPLE_RATIO", 1),
	}
}

// defaultStorePath is the disabled-id file in the user config directory
func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "pluginhost", disabled.DefaultFileName)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Plugins.CoreID) == "" {
		errs = append(errs, errors.New("core plugin id is required"))
	}
	if c.Plugins.LoadConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("load concurrency must be positive, got %d", c.Plugins.LoadConcurrency))
	}
	if c.Plugins.UnitCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("unit cache size must be positive, got %d", c.Plugins.UnitCacheSize))
	}

	switch c.Store.Type {
	case disabled.TypeFile, disabled.TypeSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store path is required for %s store", c.Store.Type))
		}
	case disabled.TypeRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("redis URL is required for redis store"))
		}
	case disabled.TypePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("database URL is required for postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store type: %s (must be file, redis, sqlite, or postgres)", c.Store.Type))
	}

	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Observability.LogLevel))
	}
	if f := c.Observability.LogFormat; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log format: %s (must be text or json)", f))
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return errors.Join(errs...)
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits an environment variable into trimmed, non-empty items
func getEnvList(key string, split func(string) []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, item := range split(value) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func splitComma(s string) []string {
	return strings.Split(s, ",")
}
