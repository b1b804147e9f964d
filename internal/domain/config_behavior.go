package domain

import (
	"strings"
	"time"
)

// Documented defaults. DefaultConfig is the only place they are assembled.
const (
	DefaultConfigFormatVersion    = "1"
	DefaultTargetOS               = OSLinux
	DefaultDryRun                 = true
	DefaultSafeWorkdir            = "~/.local/share/gensh/sandbox"
	DefaultMaxTimeoutSeconds      = 30
	DefaultMinConfidenceToAutoRun = 0.9
	DefaultRulesFile              = "~/.gensh/guardrail.yaml"
	DefaultProvider               = "simulated"
	DefaultBackendTimeoutSeconds  = 60
	DefaultTemperature            = 0.4
	DefaultOllamaEndpoint         = "http://localhost:11434"
	DefaultHistoryStore           = HistoryStoreSQLite
	DefaultCacheTTL               = "1h"
)

// History store kinds.
const (
	HistoryStoreSQLite = "sqlite"
	HistoryStoreJSONL  = "jsonl"
)

// DefaultConfig returns a fresh copy of the built-in configuration.
// Callers may mutate the result freely.
func DefaultConfig() Config {
	return Config{
		ConfigFormatVersion: DefaultConfigFormatVersion,
		OS:                  DefaultTargetOS,
		General: GeneralSettings{
			DryRunDefault: DefaultDryRun,
			SafeWorkdir:   DefaultSafeWorkdir,
		},
		Safety: SafetySettings{
			MaxTimeoutSeconds:      DefaultMaxTimeoutSeconds,
			MinConfidenceToAutoRun: DefaultMinConfidenceToAutoRun,
			RulesFile:              DefaultRulesFile,
		},
		Backend: BackendSettings{
			Provider:       DefaultProvider,
			TimeoutSeconds: DefaultBackendTimeoutSeconds,
			Temperature:    DefaultTemperature,
			OllamaEndpoint: DefaultOllamaEndpoint,
		},
		History: HistorySettings{
			Enabled: true,
			Store:   DefaultHistoryStore,
		},
		Cache: CacheSettings{
			Enabled:    false,
			TTL:        DefaultCacheTTL,
			MaxEntries: DefaultMaxCacheEntries,
		},
	}
}

// GetTargetOS returns the configured dialect, defaulting to linux when unset or invalid.
func (c *Config) GetTargetOS() TargetOS {
	if !c.OS.Valid() {
		return DefaultTargetOS
	}
	return c.OS
}

// GetExecutionTimeout returns the sandbox timeout.
func (c *Config) GetExecutionTimeout() time.Duration {
	if c.Safety.MaxTimeoutSeconds <= 0 {
		return DefaultMaxTimeoutSeconds * time.Second
	}
	return time.Duration(c.Safety.MaxTimeoutSeconds) * time.Second
}

// GetBackendTimeout returns the deadline applied to a single backend call.
func (c *Config) GetBackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return DefaultBackendTimeoutSeconds * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// GetMinConfidence returns the auto-run threshold.
func (c *Config) GetMinConfidence() float64 {
	return c.Safety.MinConfidenceToAutoRun
}

// GetProvider returns the backend name, normalized to lower case.
func (c *Config) GetProvider() string {
	provider := strings.ToLower(strings.TrimSpace(c.Backend.Provider))
	if provider == "" {
		return DefaultProvider
	}
	return provider
}

// GetSafeWorkdir returns the sandbox path (unexpanded).
func (c *Config) GetSafeWorkdir() string {
	if strings.TrimSpace(c.General.SafeWorkdir) == "" {
		return DefaultSafeWorkdir
	}
	return c.General.SafeWorkdir
}

// GetRulesFile returns the guardrail rules path (unexpanded).
func (c *Config) GetRulesFile() string {
	if strings.TrimSpace(c.Safety.RulesFile) == "" {
		return DefaultRulesFile
	}
	return c.Safety.RulesFile
}

// APIKeyFor returns the configured key for a provider, or "" when none is stored.
func (c *Config) APIKeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "google", "gemini":
		return c.Backend.GoogleAPIKey
	case "openai":
		return c.Backend.OpenAIAPIKey
	case "anthropic", "claude":
		return c.Backend.AnthropicAPIKey
	default:
		return ""
	}
}

// GetHistoryStore returns the history backend kind.
func (c *Config) GetHistoryStore() string {
	switch strings.ToLower(c.History.Store) {
	case HistoryStoreJSONL:
		return HistoryStoreJSONL
	default:
		return HistoryStoreSQLite
	}
}

// GetCacheTTL parses the cache TTL, falling back to one hour.
func (c *Config) GetCacheTTL() time.Duration {
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || ttl <= 0 {
		return time.Hour
	}
	return ttl
}

// GetCacheMaxEntries returns the maximum number of cache entries.
func (c *Config) GetCacheMaxEntries() int {
	if c.Cache.MaxEntries <= 0 {
		return DefaultMaxCacheEntries
	}
	return c.Cache.MaxEntries
}
