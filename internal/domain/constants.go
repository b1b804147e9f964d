package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 60 * time.Second
	// ProcessWaitDelay bounds how long output pipes are drained after a kill
	ProcessWaitDelay = 2 * time.Second
)

// Generation constants
const (
	// DefaultRecordConfidence applies when a structured record omits confidence
	DefaultRecordConfidence = 0.5
	// HeuristicConfidence is assigned to commands recovered from prose
	HeuristicConfidence = 0.0
	// HeuristicExplanation is the placeholder explanation for heuristic records
	HeuristicExplanation = "Parsed heuristically from model output"
)

// Limit constants
const (
	// DefaultMaxCacheEntries is the maximum number of cache entries
	DefaultMaxCacheEntries = 100
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 512
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 50
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
