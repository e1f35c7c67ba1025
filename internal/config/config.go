// Package config contains everything related to configuration
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

	"github.com/j-veylop/habitlens/internal/keyring"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogDir       string
	Debug        bool
	UserID       string

	RecordsSource string
	RecordsPath   string
	MongoURI      string
	MongoDB       string

	CacheBackend         string
	RedisURL             string
	CacheCleanupInterval time.Duration

	ConnectivityProbeURL string
	ConnectivityInterval time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	EngineWorkers  int
	MinDataPoints  int

	MetricsAddr   string
	Notifications bool
}

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DatabasePath: getEnvString("DATABASE_PATH", getDefaultDatabasePath()),
		LogDir:       getEnvString("LOG_DIR", filepath.Join(getConfigDir(), "logs")),
		Debug:        getEnvBool("DEBUG", false),
		UserID:       getEnvString("USER_ID", defaultUserID()),

		RecordsSource: strings.ToLower(getEnvString("RECORDS_SOURCE", SourceSQLite)),
		RecordsPath:   getEnvString("RECORDS_PATH", getDefaultRecordsPath()),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       getEnvString("MONGO_DB", defaultMongoDB),

		CacheBackend:         strings.ToLower(getEnvString("CACHE_BACKEND", BackendSQLite)),
		RedisURL:             os.Getenv("REDIS_URL"),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", defaultCacheCleanupInterval),

		ConnectivityProbeURL: os.Getenv("CONNECTIVITY_PROBE_URL"),
		ConnectivityInterval: getEnvDuration("CONNECTIVITY_INTERVAL", defaultConnectivityInterval),

		RetryAttempts:  getEnvInt("RETRY_ATTEMPTS", defaultRetryAttempts),
		RetryBaseDelay: getEnvDuration("RETRY_BASE_DELAY", defaultRetryBaseDelay),
		EngineWorkers:  getEnvInt("ENGINE_WORKERS", defaultEngineWorkers),
		MinDataPoints:  getEnvInt("MIN_DATA_POINTS", defaultMinDataPoints),

		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		Notifications: getEnvBool("NOTIFICATIONS", true),
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	if err := ensureDir(cfg.LogDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveSecrets falls back to the OS keyring for a Mongo URI not set in
// the environment.
func (c *Config) resolveSecrets() error {
	if c.RecordsSource != SourceMongo || c.MongoURI != "" {
		return nil
	}
	uri, err := keyring.GetMongoURI()
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read MONGO_URI from keyring: %w", err)
	}
	c.MongoURI = uri
	return nil
}

// Validate checks option values and the settings each backend requires.
func (c *Config) Validate() error {
	switch c.RecordsSource {
	case SourceSQLite, SourceFile:
	case SourceMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for RECORDS_SOURCE=mongo (set via env or `habitlens keyring set`)")
		}
	default:
		return fmt.Errorf("unknown RECORDS_SOURCE %q (want sqlite, file or mongo)", c.RecordsSource)
	}

	switch c.CacheBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want sqlite, redis or memory)", c.CacheBackend)
	}

	if c.UserID == "" {
		return fmt.Errorf("USER_ID is required")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", appName, ".env"),
			filepath.Join(home, "."+appName, ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// getConfigDir returns the per-user configuration directory.
func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", appName)
}

func getDefaultDatabasePath() string {
	return filepath.Join(getConfigDir(), "habitlens.db")
}

func getDefaultRecordsPath() string {
	return filepath.Join(getConfigDir(), "records.json")
}

func defaultUserID() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
