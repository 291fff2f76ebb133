package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file. Pointer fields distinguish an
// explicit zero from an absent key.
type fileConfig struct {
	EndpointURL     string `yaml:"endpointUrl"`
	APIKey          string `yaml:"apiKey"`
	APIKeyHeader    string `yaml:"apiKeyHeader"`
	PageSize        int    `yaml:"pageSize"`
	AgentPageSize   int    `yaml:"agentPageSize"`
	DebounceDelayMs *int   `yaml:"debounceDelayMs"`
	ScrollThreshold *int   `yaml:"scrollThreshold"`
	RequestTimeout  string `yaml:"requestTimeout"`
	CacheTTL        string `yaml:"cacheTtl"`
	DatabasePath    string `yaml:"databasePath"`
	LogPath         string `yaml:"logPath"`
	LogLevel        string `yaml:"logLevel"`
	NotifyOnPause   *bool  `yaml:"notifyOnPause"`

	InsertAttempts   int    `yaml:"insertAttempts"`
	InsertRetryDelay string `yaml:"insertRetryDelay"`
}

// LoadYAML loads a YAML file into the provided struct.
func LoadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}
	return nil
}

func loadFileConfig(path string) (*fileConfig, error) {
	var fc fileConfig
	if err := LoadYAML(path, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// apply copies every key present in the file onto cfg.
func (fc *fileConfig) apply(cfg *Config) {
	if fc.EndpointURL != "" {
		cfg.EndpointURL = fc.EndpointURL
	}
	if fc.APIKey != "" {
		cfg.APIKey = fc.APIKey
	}
	if fc.APIKeyHeader != "" {
		cfg.APIKeyHeader = fc.APIKeyHeader
	}
	if fc.PageSize != 0 {
		cfg.PageSize = fc.PageSize
	}
	if fc.AgentPageSize != 0 {
		cfg.AgentPageSize = fc.AgentPageSize
	}
	if fc.DebounceDelayMs != nil {
		cfg.DebounceDelay = time.Duration(*fc.DebounceDelayMs) * time.Millisecond
	}
	if fc.ScrollThreshold != nil {
		cfg.ScrollThreshold = *fc.ScrollThreshold
	}
	if d, err := time.ParseDuration(fc.RequestTimeout); err == nil {
		cfg.RequestTimeout = d
	}
	if d, err := time.ParseDuration(fc.CacheTTL); err == nil {
		cfg.CacheTTL = d
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.LogPath != "" {
		cfg.LogPath = fc.LogPath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.NotifyOnPause != nil {
		cfg.NotifyOnPause = *fc.NotifyOnPause
	}
	if fc.InsertAttempts != 0 {
		cfg.InsertAttempts = fc.InsertAttempts
	}
	if d, err := time.ParseDuration(fc.InsertRetryDelay); err == nil {
		cfg.InsertRetryDelay = d
	}
}
