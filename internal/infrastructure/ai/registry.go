// Package ai provides the text generation backends and the registry that selects them.
//
// Every backend turns an instruction into raw, untrusted text:
//   - simulated: deterministic offline JSON, also the fallback for unknown names
//   - google, openai, anthropic: cloud APIs, degrading to simulated output without credentials
//   - ollama: a local model server
//
// Transport and API failures are reported as *domain.BackendError.
package ai

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// Provider names.
const (
	ProviderSimulated = "simulated"
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

var aliases = map[string]string{
	"gemini": ProviderGoogle,
	"claude": ProviderAnthropic,
	"gpt":    ProviderOpenAI,
	"local":  ProviderOllama,
}

// Dependencies are shared by every backend the registry builds.
type Dependencies struct {
	HTTPClient *http.Client
	Logger     ports.Logger
}

// Constructor builds a backend for a configuration snapshot.
type Constructor func(cfg domain.Config, deps Dependencies) ports.Backend

// Registry maps provider names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	deps         Dependencies
}

// NewRegistry returns a registry with every built-in provider registered.
func NewRegistry(logger ports.Logger) *Registry {
	r := NewEmptyRegistry(Dependencies{
		HTTPClient: &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
		Logger:     logger,
	})
	r.Register(ProviderSimulated, func(cfg domain.Config, _ Dependencies) ports.Backend {
		return NewSimulated(cfg.GetTargetOS())
	})
	r.Register(ProviderGoogle, func(cfg domain.Config, deps Dependencies) ports.Backend {
		return NewGoogle(cfg, deps)
	})
	r.Register(ProviderOpenAI, func(cfg domain.Config, deps Dependencies) ports.Backend {
		return NewOpenAI(cfg, deps)
	})
	r.Register(ProviderAnthropic, func(cfg domain.Config, deps Dependencies) ports.Backend {
		return NewAnthropic(cfg, deps)
	})
	r.Register(ProviderOllama, func(cfg domain.Config, deps Dependencies) ports.Backend {
		return NewOllama(cfg, deps)
	})
	return r
}

// NewEmptyRegistry returns a registry with no providers except the simulated fallback.
func NewEmptyRegistry(deps Dependencies) *Registry {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: domain.DefaultHTTPClientTimeout}
	}
	r := &Registry{constructors: map[string]Constructor{}, deps: deps}
	r.constructors[ProviderSimulated] = func(cfg domain.Config, _ Dependencies) ports.Backend {
		return NewSimulated(cfg.GetTargetOS())
	}
	return r
}

// Register adds or replaces a provider constructor.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[normalizeName(name)] = ctor
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name (or one of its aliases) is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[normalizeName(name)]
	return ok
}

// Resolve builds the backend for name, or for the configured provider when
// name is empty. Unknown names fall back to the simulated backend.
func (r *Registry) Resolve(name string, cfg domain.Config) ports.Backend {
	if strings.TrimSpace(name) == "" {
		name = cfg.GetProvider()
	}
	key := normalizeName(name)

	r.mu.RLock()
	ctor, ok := r.constructors[key]
	fallback := r.constructors[ProviderSimulated]
	r.mu.RUnlock()

	if !ok {
		if r.deps.Logger != nil {
			r.deps.Logger.Warn("unknown backend provider, using simulated", map[string]interface{}{
				"provider": name,
			})
		}
		ctor = fallback
	}
	return ctor(cfg, r.deps)
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

var _ ports.BackendResolver = (*Registry)(nil)

var (
	_ ports.OfflineBackend = (*simulatedBackend)(nil)
	_ ports.OfflineBackend = (*googleBackend)(nil)
	_ ports.OfflineBackend = (*openAIBackend)(nil)
	_ ports.OfflineBackend = (*anthropicBackend)(nil)
	_ ports.OfflineBackend = (*ollamaBackend)(nil)

	_ ports.Explainer = (*simulatedBackend)(nil)
	_ ports.Explainer = (*googleBackend)(nil)
	_ ports.Explainer = (*openAIBackend)(nil)
	_ ports.Explainer = (*anthropicBackend)(nil)
	_ ports.Explainer = (*ollamaBackend)(nil)

	_ ports.ModelLister = (*simulatedBackend)(nil)
	_ ports.ModelLister = (*googleBackend)(nil)
	_ ports.ModelLister = (*openAIBackend)(nil)
	_ ports.ModelLister = (*anthropicBackend)(nil)
	_ ports.ModelLister = (*ollamaBackend)(nil)
)
