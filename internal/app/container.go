// Package app wires application services to infrastructure adapters.
package app

import (
	"context"
	"io"

	"github.com/doeshing/gensh/internal/application/doctor"
	"github.com/doeshing/gensh/internal/application/generation"
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/infrastructure/ai"
	"github.com/doeshing/gensh/internal/infrastructure/cache"
	"github.com/doeshing/gensh/internal/infrastructure/config"
	"github.com/doeshing/gensh/internal/infrastructure/executor"
	"github.com/doeshing/gensh/internal/infrastructure/history"
	"github.com/doeshing/gensh/internal/infrastructure/parser"
	"github.com/doeshing/gensh/internal/infrastructure/security"
	"github.com/doeshing/gensh/internal/pkg/logger"
	"github.com/doeshing/gensh/internal/ports"
)

// Options controls how the container is assembled.
type Options struct {
	Verbose bool
	// ConfigPath overrides GENSH_CONFIG and the default location.
	ConfigPath string
	// CacheDir overrides ~/.gensh/cache/responses.
	CacheDir string
	// LogOutput receives debug logs; stderr when nil.
	LogOutput io.Writer
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         ports.Logger
	Registry       *ai.Registry
	Guardrail      *security.Guardrail
	Parser         *parser.Parser
	Generator      *generation.Service
	Executor       *executor.Sandbox
	// HistoryStore is nil when history is disabled.
	HistoryStore  ports.HistoryRepository
	CacheStore    *cache.FileCache
	DoctorService *doctor.Service
}

// BuildContainer constructs the dependency graph. Configuration and rule
// file problems degrade to defaults with a warning; only a broken embedded
// rule set is fatal.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	var log *logger.StdLogger
	if opts.LogOutput != nil {
		log = logger.New(opts.LogOutput, opts.Verbose)
	} else {
		log = logger.NewStd(opts.Verbose)
	}

	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		log.Warn("config unavailable, using defaults", map[string]interface{}{
			"path":  cfgLoader.Path(),
			"error": err.Error(),
		})
		cfg = domain.DefaultConfig()
	}

	guardrail, err := security.NewGuardrail(cfg.GetRulesFile())
	if err != nil {
		log.Warn("guardrail rules rejected, using embedded defaults", map[string]interface{}{
			"path":  cfg.GetRulesFile(),
			"error": err.Error(),
		})
		guardrail, err = security.NewDefaultGuardrail()
		if err != nil {
			return nil, err
		}
	}

	registry := ai.NewRegistry(log)
	rules := parser.New()
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = cache.DefaultDir()
	}
	cacheStore := cache.NewFileCache(cacheDir, cfg.GetCacheTTL(), cfg.GetCacheMaxEntries())
	sandbox := executor.NewSandbox(cfg.GetSafeWorkdir(), cfg.GetExecutionTimeout(), log)
	historyStore := openHistory(cfg, log)

	generator := &generation.Service{
		Backends:   registry,
		Parser:     rules,
		Classifier: guardrail,
		Cache:      cacheStore,
		Logger:     log,
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Rules:          guardrail,
		Workspace:      sandbox,
		History:        historyStore,
		HasCredentials: ai.HasCredentials,
		KnownProvider:  registry.Has,
	}

	return &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		Registry:       registry,
		Guardrail:      guardrail,
		Parser:         rules,
		Generator:      generator,
		Executor:       sandbox,
		HistoryStore:   historyStore,
		CacheStore:     cacheStore,
		DoctorService:  doctorService,
	}, nil
}

// openHistory opens the configured store, falling back to the jsonl store
// when the sqlite database cannot be opened.
func openHistory(cfg domain.Config, log ports.Logger) ports.HistoryRepository {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg.History)
	if err == nil {
		return store
	}
	fallback := history.NewFileStore(history.DefaultPath(domain.HistoryStoreJSONL))
	log.Warn("history store unavailable, falling back to jsonl", map[string]interface{}{
		"error": err.Error(),
		"path":  fallback.Path(),
	})
	return fallback
}
