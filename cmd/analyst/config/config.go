// Package config provides configuration parsing for the analyst service.
//
// Flags take precedence over environment variables, which take precedence
// over defaults. A .env file in the working directory is loaded first so
// its values act as environment variables.
//
// Source-specific options are passed through SOURCE_* environment
// variables and converted to camelCase keys, for example SOURCE_YEAR_PATH
// becomes "yearPath". DATABASE_URL fills "url" for postgres and SQLITE_PATH
// fills "path" for sqlite.
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/HatiCode/skillhalflife/pkg/httpx"
)

// Config holds all analyst configuration.
type Config struct {
	Listen     string
	GRPCListen string
	LogFormat  string
	LogLevel   string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheMaxItems int

	Source       string
	SourceConfig map[string]string
	DatabaseURL  string
	SQLitePath   string

	CatalogFile   string
	StartYear     int
	RecentWindow  int
	ForecastYears int

	TLS httpx.TLSConfig
}

// ParseFlags parses command-line flags and environment variables into a Config.
func ParseFlags() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address")
	flag.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", ":50051"), "gRPC health listen address (empty to disable)")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Report cache backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", getEnvDuration("CACHE_TTL", 15*time.Minute), "Report cache TTL")
	flag.IntVar(&cfg.CacheMaxItems, "cache-max-entries", getEnvInt("CACHE_MAX_ENTRIES", 10000), "Maximum reports held by the memory cache (0 = unbounded)")

	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", "sqlite"), "Job market source: sqlite, postgres, or http")
	flag.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "PostgreSQL connection URL")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", getEnv("SQLITE_PATH", "skillhalflife.db"), "SQLite database file")

	flag.StringVar(&cfg.CatalogFile, "catalog-file", getEnv("CATALOG_FILE", ""), "YAML pivot catalog (watched for changes)")
	flag.IntVar(&cfg.StartYear, "start-year", getEnvInt("START_YEAR", 1985), "First year for ad-hoc series")
	flag.IntVar(&cfg.RecentWindow, "recent-window", getEnvInt("RECENT_WINDOW", 12), "Years used for the recent-trend fit")
	flag.IntVar(&cfg.ForecastYears, "forecast-years", getEnvInt("FORECAST_YEARS", 5), "Years projected by the half-life forecast")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Serve HTTPS (mutual TLS when a CA file is set)")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification")

	flag.Parse()

	cfg.SourceConfig = parseSourceConfig()
	switch cfg.Source {
	case "postgres":
		if cfg.DatabaseURL != "" {
			cfg.SourceConfig["url"] = cfg.DatabaseURL
		}
	case "sqlite":
		if _, ok := cfg.SourceConfig["path"]; !ok {
			cfg.SourceConfig["path"] = cfg.SQLitePath
		}
	}

	return cfg
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Storage {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}
	if c.Storage == "redis" && c.RedisAddr == "" {
		return errors.New("redis-addr is required when storage=redis")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache-ttl must be > 0, got %v", c.CacheTTL)
	}
	if c.CacheMaxItems < 0 {
		return fmt.Errorf("cache-max-entries must be >= 0, got %d", c.CacheMaxItems)
	}

	switch c.Source {
	case "sqlite", "postgres", "http":
	default:
		return fmt.Errorf("invalid source %q (must be sqlite, postgres, or http)", c.Source)
	}
	if c.Source == "postgres" && c.SourceConfig["url"] == "" {
		return errors.New("database-url is required when source=postgres")
	}

	if c.RecentWindow < 1 {
		return fmt.Errorf("recent-window must be >= 1, got %d", c.RecentWindow)
	}
	if c.ForecastYears < 1 {
		return fmt.Errorf("forecast-years must be >= 1, got %d", c.ForecastYears)
	}

	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	return nil
}

// parseSourceConfig collects SOURCE_* environment variables into a map
// keyed by the camelCased suffix (SOURCE_DEMAND_PATH becomes demandPath).
func parseSourceConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, "SOURCE_") || len(name) == len("SOURCE_") {
			continue
		}
		config[toLowerCamelCase(name[len("SOURCE_"):])] = value
	}

	return config
}

func toLowerCamelCase(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString(strings.ToUpper(p[:1]) + p[1:])
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
