package domain

// Config mirrors ~/.gensh/config.yaml.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version"`
	OS                  TargetOS        `yaml:"os"`
	General             GeneralSettings `yaml:"general"`
	Safety              SafetySettings  `yaml:"safety"`
	Backend             BackendSettings `yaml:"backend"`
	History             HistorySettings `yaml:"history"`
	Cache               CacheSettings   `yaml:"cache"`
}

// GeneralSettings captures execution defaults.
type GeneralSettings struct {
	DryRunDefault bool   `yaml:"dry_run_default"`
	SafeWorkdir   string `yaml:"safe_workdir"`
}

// SafetySettings defines the gating thresholds applied to generated commands.
type SafetySettings struct {
	MaxTimeoutSeconds      int     `yaml:"max_timeout_seconds"`
	MinConfidenceToAutoRun float64 `yaml:"min_confidence_to_auto_run"`
	RulesFile              string  `yaml:"rules_file"`
}

// BackendSettings selects and configures the text generation backend.
type BackendSettings struct {
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	Temperature     float64 `yaml:"temperature"`
	GoogleAPIKey    string  `yaml:"google_api_key"`
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	OllamaEndpoint  string  `yaml:"ollama_endpoint"`
}

// HistorySettings controls where history entries are appended.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Store   string `yaml:"store"`
	Path    string `yaml:"path"`
}

// CacheSettings controls the raw backend response cache.
type CacheSettings struct {
	Enabled    bool   `yaml:"enabled"`
	TTL        string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
}
