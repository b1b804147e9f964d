package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// Environment variables consulted when the config holds no key.
const (
	envGoogleAPIKey    = "GOOGLE_API_KEY"
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envAnthropicAPIKey = "ANTHROPIC_API_KEY"
	envOpenAIBaseURL   = "OPENAI_BASE_URL"
)

// ErrMissingCredentials is returned by operations that cannot degrade to
// simulated output, such as listing a provider's models.
var ErrMissingCredentials = errors.New("missing API credentials")

var defaultModels = map[string]string{
	ProviderSimulated: ProviderSimulated,
	ProviderGoogle:    defaultGoogleModel,
	ProviderOpenAI:    defaultOpenAIModel,
	ProviderAnthropic: defaultAnthropicModel,
	ProviderOllama:    defaultOllamaModel,
}

// DefaultModel returns the model a provider uses when backend.model is empty.
func DefaultModel(provider string) string {
	return defaultModels[normalizeName(provider)]
}

// resolveAPIKey prefers the configured key and falls back to the environment.
func resolveAPIKey(cfg domain.Config, provider, envVar string) string {
	if key := strings.TrimSpace(cfg.APIKeyFor(provider)); key != "" {
		return key
	}
	if envVar == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envVar))
}

// HasCredentials reports whether provider can reach its real API.
func HasCredentials(cfg domain.Config, provider string) bool {
	switch normalizeName(provider) {
	case ProviderGoogle:
		return resolveAPIKey(cfg, ProviderGoogle, envGoogleAPIKey) != ""
	case ProviderOpenAI:
		return resolveAPIKey(cfg, ProviderOpenAI, envOpenAIAPIKey) != ""
	case ProviderAnthropic:
		return resolveAPIKey(cfg, ProviderAnthropic, envAnthropicAPIKey) != ""
	default:
		return true
	}
}

func valueOrDefault(value string, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// degraded logs a missing-credentials fallback and returns the simulated response.
func degraded(ctx context.Context, provider string, target domain.TargetOS, instruction string, logger ports.Logger) (string, error) {
	if logger != nil {
		logger.Warn("missing API credentials, returning simulated response", map[string]interface{}{
			"provider": provider,
		})
	}
	return NewSimulated(target).Generate(ctx, instruction)
}

// degradedExplanation is the missing-credentials path for Explain.
func degradedExplanation(ctx context.Context, provider string, target domain.TargetOS, command string, logger ports.Logger) (string, error) {
	if logger != nil {
		logger.Warn("missing API credentials, returning simulated explanation", map[string]interface{}{
			"provider": provider,
		})
	}
	return NewSimulated(target).(ports.Explainer).Explain(ctx, command)
}

func missingCredentials(provider string) error {
	return fmt.Errorf("%s: %w", provider, ErrMissingCredentials)
}

// sortedModels trims prefixes, drops blanks and duplicates, and sorts.
func sortedModels(names []string, prefix string) []string {
	seen := make(map[string]bool, len(names))
	models := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimPrefix(strings.TrimSpace(name), prefix)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		models = append(models, name)
	}
	sort.Strings(models)
	return models
}
