package config

import "time"

// Default values
const (
	defaultPageSize        = 30
	defaultAgentPageSize   = 100
	defaultDebounceDelay   = 500 * time.Millisecond
	defaultScrollThreshold = 3
	defaultRequestTimeout  = 30 * time.Second
	defaultCacheTTL        = time.Minute
	defaultAPIKeyHeader    = "x-hasura-admin-secret"
	defaultInsertAttempts  = 3
	defaultInsertRetry     = time.Second
)

// Environment variable names.
const (
	EnvEndpoint        = "GRAPHQL_ENDPOINT"
	EnvAPIKey          = "GRAPHQL_API_KEY"
	EnvAPIKeyHeader    = "GRAPHQL_API_KEY_HEADER"
	EnvPageSize        = "PAGE_SIZE"
	EnvAgentPageSize   = "AGENT_PAGE_SIZE"
	EnvDebounceDelayMs = "DEBOUNCE_DELAY_MS"
	EnvScrollThreshold = "SCROLL_THRESHOLD"
	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvCacheTTL        = "CACHE_TTL"
	EnvDatabasePath    = "DATABASE_PATH"
	EnvLogPath         = "LOG_PATH"
	EnvLogLevel        = "LOG_LEVEL"
	EnvNotifyOnPause   = "NOTIFY_ON_PAUSE"
	EnvInsertAttempts  = "INSERT_ATTEMPTS"
	EnvInsertRetry     = "INSERT_RETRY_DELAY"
	EnvConfigFile      = "LLMLOG_CONFIG"
)
