// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Cache backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Sheet    SheetConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Refresh  RefreshConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s).
	// The status event stream is exempt.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// SheetConfig identifies the spreadsheet feeding the catalog.
type SheetConfig struct {
	// SpreadsheetID is the document id from the sheet URL
	SpreadsheetID string `env:"SHEET_SPREADSHEET_ID" envAlt:"VITE_SPREADSHEET_ID" default:"1ZDO0G2YTgxcXrK-Zw4sBofPXtcdsvirrSs4fKdnZIQI"`

	// GID selects the tab (default: 0, the first tab)
	GID string `env:"SHEET_GID" envAlt:"VITE_GID" default:"0"`

	// Name optionally selects the tab by name
	Name string `env:"SHEET_NAME"`

	// BaseURL is the spreadsheet endpoint root
	BaseURL string `env:"SHEET_BASE_URL" default:"https://docs.google.com/spreadsheets/d"`

	// FetchTimeout bounds one fetch of the feed (default: 15s)
	FetchTimeout time.Duration `env:"SHEET_FETCH_TIMEOUT" default:"15s"`

	// MaxBodyBytes caps the feed response size (default: 32MiB)
	MaxBodyBytes int64 `env:"SHEET_MAX_BODY_BYTES" default:"33554432"`
}

// CacheConfig holds catalog snapshot settings.
type CacheConfig struct {
	// TTL is how long a snapshot is served before refetching (default: 1h)
	TTL time.Duration `env:"CACHE_TTL" default:"1h"`

	// Backend is where snapshots live: file, memory or postgres (default: file)
	Backend string `env:"CACHE_BACKEND" default:"file"`

	// Path is the snapshot file for the file backend
	Path string `env:"CACHE_PATH" default:"data/pharma_medicines_cache.json"`

	// Key is the snapshot key for the postgres backend
	Key string `env:"CACHE_KEY" default:"pharma_medicines_cache"`
}

// DatabaseConfig holds database connection settings.
// Only used by the postgres cache backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RefreshConfig holds background refresh settings.
type RefreshConfig struct {
	// Enabled runs the refresh scheduler (default: true)
	Enabled bool `env:"REFRESH_ENABLED" default:"true"`

	// CheckInterval is how often catalog age is checked (default: 5m)
	CheckInterval time.Duration `env:"REFRESH_CHECK_INTERVAL" default:"5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ReloadLimit is requests per minute for the admin reload endpoints (default: 6)
	ReloadLimit int `env:"RATE_LIMIT_RELOAD" default:"6"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
