package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the backend server settings.
type Config struct {
	Addr     string
	DBPath   string
	LogLevel string
	LogFile  string
}

// PortalConfig holds the settings of the portal client.
type PortalConfig struct {
	DataDir       string
	RemoteURL     string
	User          string
	DefaultTrack  string
	StorageQuota  int
	SyncInterval  time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	WorkerCount   int
	QueueSize     int
	LogLevel      string
	LogFile       string
}

// Load reads the server configuration from a .env file (if present) and environment variables,
// applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:     envOr("ADDR", ":8080"),
		DBPath:   envOr("DB_PATH", "file:prepportal.db"),
		LogLevel: envOr("LOG_LEVEL", "INFO"),
		LogFile:  envOr("LOG_FILE", ""),
	}
}

// LoadPortal reads the portal configuration the same way Load does.
func LoadPortal() PortalConfig {
	_ = godotenv.Load()

	return PortalConfig{
		DataDir:       envOr("PORTAL_DATA_DIR", defaultDataDir()),
		RemoteURL:     strings.TrimRight(envOr("PORTAL_REMOTE_URL", ""), "/"),
		User:          envOr("PORTAL_USER", ""),
		DefaultTrack:  envOr("PORTAL_DEFAULT_TRACK", "standard"),
		StorageQuota:  envIntOr("PORTAL_STORAGE_QUOTA", 5*1024*1024),
		SyncInterval:  envDurationOr("PORTAL_SYNC_INTERVAL", 5*time.Minute),
		RetryAttempts: envIntOr("PORTAL_RETRY_ATTEMPTS", 3),
		RetryBackoff:  envDurationOr("PORTAL_RETRY_BACKOFF", 2*time.Second),
		WorkerCount:   envIntOr("PORTAL_WORKERS", 1),
		QueueSize:     envIntOr("PORTAL_QUEUE_SIZE", 16),
		LogLevel:      envOr("LOG_LEVEL", "WARN"),
		LogFile:       envOr("LOG_FILE", ""),
	}
}

// Validate checks the server configuration.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	return nil
}

// Validate checks the portal configuration.
func (c PortalConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("PORTAL_DATA_DIR cannot be empty")
	}
	if c.DefaultTrack == "" || strings.Contains(c.DefaultTrack, "-") {
		return fmt.Errorf("PORTAL_DEFAULT_TRACK must be non-empty and must not contain '-'")
	}
	if c.RemoteURL != "" && !strings.HasPrefix(c.RemoteURL, "http://") && !strings.HasPrefix(c.RemoteURL, "https://") {
		return fmt.Errorf("PORTAL_REMOTE_URL must start with http:// or https://")
	}
	if c.StorageQuota <= 0 {
		return fmt.Errorf("PORTAL_STORAGE_QUOTA must be positive")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("PORTAL_SYNC_INTERVAL must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("PORTAL_RETRY_ATTEMPTS must be at least 1")
	}
	if c.WorkerCount < 1 || c.QueueSize < 1 {
		return fmt.Errorf("PORTAL_WORKERS and PORTAL_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// RemoteEnabled reports whether a remote store is configured.
func (c PortalConfig) RemoteEnabled() bool {
	return c.RemoteURL != ""
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "prepportal")
	}
	return ".prepportal"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}
