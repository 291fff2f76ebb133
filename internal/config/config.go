// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	EndpointURL     string
	APIKey          string
	APIKeyHeader    string
	PageSize        int
	AgentPageSize   int
	DebounceDelay   time.Duration
	ScrollThreshold int
	RequestTimeout  time.Duration
	CacheTTL        time.Duration
	DatabasePath    string
	LogPath         string
	LogLevel        string
	NotifyOnPause   bool

	// InsertAttempts bounds how often a chat completion insert is sent when
	// the endpoint is unreachable or failing; InsertRetryDelay is the base
	// wait between attempts.
	InsertAttempts   int
	InsertRetryDelay time.Duration

	// ConfigFile is the YAML file the configuration was read from, empty
	// when none existed.
	ConfigFile string
}

// Default returns a configuration populated with default values only.
func Default() *Config {
	return &Config{
		APIKeyHeader:    defaultAPIKeyHeader,
		PageSize:        defaultPageSize,
		AgentPageSize:   defaultAgentPageSize,
		DebounceDelay:   defaultDebounceDelay,
		ScrollThreshold: defaultScrollThreshold,
		RequestTimeout:  defaultRequestTimeout,
		CacheTTL:        defaultCacheTTL,
		DatabasePath:    getDefaultDatabasePath(),
		LogLevel:        "info",
		NotifyOnPause:   true,

		InsertAttempts:   defaultInsertAttempts,
		InsertRetryDelay: defaultInsertRetry,
	}
}

// Load reads configuration from the default YAML file, .env files and
// environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration using path as the YAML file. An explicit path
// must exist; the default path is optional.
func LoadFrom(path string) (*Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is LoadFrom with override applied after the file and environment
// and before validation. Command-line flags use it.
func LoadWith(path string, override func(*Config)) (*Config, error) {
	// Try loading .env from multiple locations
	for _, envPath := range getEnvPaths() {
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			break
		}
	}

	explicit := path != ""
	if !explicit {
		path = getEnvString(EnvConfigFile, "")
		explicit = path != ""
	}
	if !explicit {
		path = getDefaultConfigPath()
	}

	cfg := Default()

	if path != "" {
		fc, err := loadFileConfig(path)
		switch {
		case err == nil:
			fc.apply(cfg)
			cfg.ConfigFile = path
		case errors.Is(err, os.ErrNotExist) && !explicit:
			// optional
		default:
			return nil, err
		}
	}

	applyEnv(cfg)
	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides cfg with any environment variables that are set.
func applyEnv(cfg *Config) {
	cfg.EndpointURL = getEnvString(EnvEndpoint, cfg.EndpointURL)
	cfg.APIKey = getEnvString(EnvAPIKey, cfg.APIKey)
	cfg.APIKeyHeader = getEnvString(EnvAPIKeyHeader, cfg.APIKeyHeader)
	cfg.PageSize = getEnvInt(EnvPageSize, cfg.PageSize)
	cfg.AgentPageSize = getEnvInt(EnvAgentPageSize, cfg.AgentPageSize)
	cfg.DebounceDelay = time.Duration(getEnvInt(EnvDebounceDelayMs, int(cfg.DebounceDelay.Milliseconds()))) * time.Millisecond
	cfg.ScrollThreshold = getEnvInt(EnvScrollThreshold, cfg.ScrollThreshold)
	cfg.RequestTimeout = getEnvDuration(EnvRequestTimeout, cfg.RequestTimeout)
	cfg.CacheTTL = getEnvDuration(EnvCacheTTL, cfg.CacheTTL)
	cfg.DatabasePath = getEnvString(EnvDatabasePath, cfg.DatabasePath)
	cfg.LogPath = getEnvString(EnvLogPath, cfg.LogPath)
	cfg.LogLevel = getEnvString(EnvLogLevel, cfg.LogLevel)
	cfg.NotifyOnPause = getEnvBool(EnvNotifyOnPause, cfg.NotifyOnPause)
	cfg.InsertAttempts = getEnvInt(EnvInsertAttempts, cfg.InsertAttempts)
	cfg.InsertRetryDelay = getEnvDuration(EnvInsertRetry, cfg.InsertRetryDelay)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.EndpointURL == "" {
		return fmt.Errorf("%s is required (set via env, .env or endpointUrl in the config file)", EnvEndpoint)
	}

	u, err := url.Parse(c.EndpointURL)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL %q: %w", c.EndpointURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid endpoint URL %q: must be an http(s) URL", c.EndpointURL)
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.AgentPageSize <= 0 {
		return fmt.Errorf("agent page size must be positive, got %d", c.AgentPageSize)
	}
	if c.DebounceDelay < 0 {
		return fmt.Errorf("debounce delay must not be negative, got %s", c.DebounceDelay)
	}
	if c.ScrollThreshold < 0 {
		return fmt.Errorf("scroll threshold must not be negative, got %d", c.ScrollThreshold)
	}
	if c.InsertAttempts < 1 {
		return fmt.Errorf("insert attempts must be at least 1, got %d", c.InsertAttempts)
	}
	if c.InsertRetryDelay < 0 {
		return fmt.Errorf("insert retry delay must not be negative, got %s", c.InsertRetryDelay)
	}
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = defaultAPIKeyHeader
	}

	return nil
}

// MaskedAPIKey returns the API key with all but the last four characters hidden.
func (c *Config) MaskedAPIKey() string {
	if c.APIKey == "" {
		return "(none)"
	}
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", 8) + c.APIKey[len(c.APIKey)-4:]
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
			filepath.Join(home, ".config", "llmlog-dashboard", ".env"),
			filepath.Join(home, ".llmlog", ".env"),
		)
	}

	return paths
}

// getDefaultConfigPath returns the default path for the YAML config file.
func getDefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "llmlog-dashboard", "config.yaml")
}

// getDefaultDatabasePath returns the default path for the SQLite journal.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "llmlog-dashboard.db"
	}
	return filepath.Join(home, ".config", "llmlog-dashboard", "journal.db")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
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

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
