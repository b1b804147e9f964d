package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// configKey binds a dotted key to typed accessors on Config.
type configKey struct {
	name   string
	secret bool
	get    func(*Config) string
	set    func(*Config, string) error
}

var configKeys = []configKey{
	{
		name: "os",
		get:  func(c *Config) string { return string(c.OS) },
		set: func(c *Config, v string) error {
			parsed, err := ParseTargetOS(v)
			if err != nil {
				return err
			}
			c.OS = parsed
			return nil
		},
	},
	{
		name: "general.dry_run_default",
		get:  func(c *Config) string { return strconv.FormatBool(c.General.DryRunDefault) },
		set:  func(c *Config, v string) error { return setBool(&c.General.DryRunDefault, "general.dry_run_default", v) },
	},
	{
		name: "general.safe_workdir",
		get:  func(c *Config) string { return c.General.SafeWorkdir },
		set:  func(c *Config, v string) error { return setNonEmpty(&c.General.SafeWorkdir, "general.safe_workdir", v) },
	},
	{
		name: "safety.max_timeout_seconds",
		get:  func(c *Config) string { return strconv.Itoa(c.Safety.MaxTimeoutSeconds) },
		set: func(c *Config, v string) error {
			return setPositiveInt(&c.Safety.MaxTimeoutSeconds, "safety.max_timeout_seconds", v)
		},
	},
	{
		name: "safety.min_confidence_to_auto_run",
		get:  func(c *Config) string { return formatFloat(c.Safety.MinConfidenceToAutoRun) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(f) || f < 0 || f > 1 {
				return fmt.Errorf("%w: safety.min_confidence_to_auto_run must be a number in [0,1], got %q", ErrInvalidConfigValue, v)
			}
			c.Safety.MinConfidenceToAutoRun = f
			return nil
		},
	},
	{
		name: "safety.rules_file",
		get:  func(c *Config) string { return c.Safety.RulesFile },
		set:  func(c *Config, v string) error { return setNonEmpty(&c.Safety.RulesFile, "safety.rules_file", v) },
	},
	{
		name: "backend.provider",
		get:  func(c *Config) string { return c.Backend.Provider },
		set: func(c *Config, v string) error {
			return setNonEmpty(&c.Backend.Provider, "backend.provider", strings.ToLower(v))
		},
	},
	{
		name: "backend.model",
		get:  func(c *Config) string { return c.Backend.Model },
		set:  func(c *Config, v string) error { c.Backend.Model = strings.TrimSpace(v); return nil },
	},
	{
		name: "backend.timeout_seconds",
		get:  func(c *Config) string { return strconv.Itoa(c.Backend.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			return setPositiveInt(&c.Backend.TimeoutSeconds, "backend.timeout_seconds", v)
		},
	},
	{
		name: "backend.temperature",
		get:  func(c *Config) string { return formatFloat(c.Backend.Temperature) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(f) || f < 0 || f > 2 {
				return fmt.Errorf("%w: backend.temperature must be a number in [0,2], got %q", ErrInvalidConfigValue, v)
			}
			c.Backend.Temperature = f
			return nil
		},
	},
	{
		name:   "backend.google_api_key",
		secret: true,
		get:    func(c *Config) string { return c.Backend.GoogleAPIKey },
		set:    func(c *Config, v string) error { c.Backend.GoogleAPIKey = strings.TrimSpace(v); return nil },
	},
	{
		name:   "backend.openai_api_key",
		secret: true,
		get:    func(c *Config) string { return c.Backend.OpenAIAPIKey },
		set:    func(c *Config, v string) error { c.Backend.OpenAIAPIKey = strings.TrimSpace(v); return nil },
	},
	{
		name:   "backend.anthropic_api_key",
		secret: true,
		get:    func(c *Config) string { return c.Backend.AnthropicAPIKey },
		set:    func(c *Config, v string) error { c.Backend.AnthropicAPIKey = strings.TrimSpace(v); return nil },
	},
	{
		name: "backend.ollama_endpoint",
		get:  func(c *Config) string { return c.Backend.OllamaEndpoint },
		set:  func(c *Config, v string) error { return setNonEmpty(&c.Backend.OllamaEndpoint, "backend.ollama_endpoint", v) },
	},
	{
		name: "history.enabled",
		get:  func(c *Config) string { return strconv.FormatBool(c.History.Enabled) },
		set:  func(c *Config, v string) error { return setBool(&c.History.Enabled, "history.enabled", v) },
	},
	{
		name: "history.store",
		get:  func(c *Config) string { return c.History.Store },
		set: func(c *Config, v string) error {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case HistoryStoreSQLite, HistoryStoreJSONL:
				c.History.Store = strings.ToLower(strings.TrimSpace(v))
				return nil
			default:
				return fmt.Errorf("%w: history.store must be sqlite|jsonl, got %q", ErrInvalidConfigValue, v)
			}
		},
	},
	{
		name: "history.path",
		get:  func(c *Config) string { return c.History.Path },
		set:  func(c *Config, v string) error { c.History.Path = strings.TrimSpace(v); return nil },
	},
	{
		name: "cache.enabled",
		get:  func(c *Config) string { return strconv.FormatBool(c.Cache.Enabled) },
		set:  func(c *Config, v string) error { return setBool(&c.Cache.Enabled, "cache.enabled", v) },
	},
	{
		name: "cache.ttl",
		get:  func(c *Config) string { return c.Cache.TTL },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil || d <= 0 {
				return fmt.Errorf("%w: cache.ttl must be a positive duration, got %q", ErrInvalidConfigValue, v)
			}
			c.Cache.TTL = strings.TrimSpace(v)
			return nil
		},
	},
	{
		name: "cache.max_entries",
		get:  func(c *Config) string { return strconv.Itoa(c.Cache.MaxEntries) },
		set:  func(c *Config, v string) error { return setPositiveInt(&c.Cache.MaxEntries, "cache.max_entries", v) },
	},
}

// ConfigKeys lists every dotted key in display order.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for _, key := range configKeys {
		keys = append(keys, key.name)
	}
	return keys
}

// IsSecretKey reports whether the key holds a credential that should be masked on display.
func IsSecretKey(name string) bool {
	key, ok := lookupKey(name)
	return ok && key.secret
}

// Get returns the string form of a dotted key.
func (c *Config) Get(name string) (string, error) {
	key, ok := lookupKey(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownConfigKey, name)
	}
	return key.get(c), nil
}

// Set parses and validates value, then assigns it to the field behind a dotted key.
// The config is left untouched on error.
func (c *Config) Set(name, value string) error {
	key, ok := lookupKey(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, name)
	}
	return key.set(c, value)
}

func lookupKey(name string) (configKey, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, key := range configKeys {
		if key.name == name {
			return key, true
		}
	}
	return configKey{}, false
}

func setBool(dst *bool, name, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s must be true|false, got %q", ErrInvalidConfigValue, name, v)
	}
	*dst = b
	return nil
}

func setPositiveInt(dst *int, name, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfigValue, name, v)
	}
	*dst = n
	return nil
}

func setNonEmpty(dst *string, name, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidConfigValue, name)
	}
	*dst = v
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
