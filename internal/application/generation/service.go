// Package generation orchestrates backend -> parser -> validator.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/gensh/internal/application/validation"
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// Service turns an instruction into a DecisionRecord.
type Service struct {
	Backends   ports.BackendResolver
	Parser     ports.ResponseParser
	Classifier ports.RiskClassifier
	Cache      ports.ResponseCache
	Logger     ports.Logger
}

// Request carries one generation call. Config is the snapshot every stage reads.
type Request struct {
	Instruction string
	Provider    string
	Config      domain.Config
	SkipCache   bool
}

// Generate runs the pipeline. Backend failures are returned as errors matching
// domain.ErrBackend; every other outcome, rejections included, is a DecisionRecord.
func (s *Service) Generate(ctx context.Context, req Request) (domain.DecisionRecord, error) {
	if s.Backends == nil || s.Parser == nil || s.Classifier == nil || s.Logger == nil {
		return domain.DecisionRecord{}, errors.New("generation.Service dependencies not satisfied")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return domain.DecisionRecord{}, errors.New("instruction is empty")
	}

	cfg := req.Config
	backend := s.Backends.Resolve(req.Provider, cfg)
	s.Logger.Debug("calling backend", map[string]interface{}{
		"provider": backend.Name(),
		"os":       cfg.GetTargetOS(),
	})

	raw, err := s.fetch(ctx, backend, req)
	if err != nil {
		s.Logger.Error("backend failed", err, map[string]interface{}{"provider": backend.Name()})
		return domain.DecisionRecord{}, fmt.Errorf("generate: %w", err)
	}

	decision := s.Decide(raw, cfg.GetMinConfidence())
	s.Logger.Info("generation decided", map[string]interface{}{
		"provider":          backend.Name(),
		"ok":                decision.OK,
		"risk":              decision.Risk,
		"need_confirmation": decision.NeedConfirmation,
	})
	return decision, nil
}

// Decide parses raw backend text and validates it. A response with no
// structured record is reduced to a heuristic command with zero confidence,
// so it can never run unattended.
func (s *Service) Decide(raw string, minConfidence float64) domain.DecisionRecord {
	record, ok := s.Parser.ExtractStructured(raw)
	if !ok {
		command, _ := s.Parser.ExtractCommandHeuristic(raw)
		record = domain.GeneratedRecord{
			Command:     command,
			Explanation: domain.HeuristicExplanation,
			Confidence:  domain.Float64(domain.HeuristicConfidence),
			RiskTags:    []string{},
		}
	}
	decision := validation.New(s.Classifier, minConfidence).Validate(record)
	decision.ModelRaw = raw
	return decision
}

func (s *Service) fetch(ctx context.Context, backend ports.Backend, req Request) (string, error) {
	cfg := req.Config
	useCache := s.Cache != nil && cfg.Cache.Enabled && !req.SkipCache && !isOffline(backend)
	key := domain.CacheKey(backend.Name(), cfg.Backend.Model, cfg.GetTargetOS(), req.Instruction)

	if useCache {
		entry, hit, err := s.Cache.Get(key)
		switch {
		case err != nil:
			s.Logger.Warn("cache read failed", map[string]interface{}{"error": err.Error()})
		case hit:
			s.Logger.Debug("cache hit", map[string]interface{}{"provider": backend.Name()})
			return entry.Raw, nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.GetBackendTimeout())
	defer cancel()

	raw, err := backend.Generate(callCtx, req.Instruction)
	if err != nil {
		if !errors.Is(err, domain.ErrBackend) {
			err = domain.NewBackendError(backend.Name(), err)
		}
		return "", err
	}

	if useCache {
		if err := s.Cache.Set(domain.CacheEntry{Key: key, Provider: backend.Name(), Raw: raw}); err != nil {
			s.Logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return raw, nil
}

// isOffline reports whether backend answers without a real model. Such answers
// would outlive a later credential change, so they bypass the cache.
func isOffline(backend ports.Backend) bool {
	offline, ok := backend.(ports.OfflineBackend)
	return ok && offline.Offline()
}

// ExplainRequest asks a backend to describe an existing command.
type ExplainRequest struct {
	Command  string
	Provider string
	Config   domain.Config
}

// Explain returns the backend's plain-text description of a command. The
// answer is never parsed, validated or cached.
func (s *Service) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	if s.Backends == nil || s.Logger == nil {
		return "", errors.New("generation.Service dependencies not satisfied")
	}
	if strings.TrimSpace(req.Command) == "" {
		return "", errors.New("command is empty")
	}

	backend := s.Backends.Resolve(req.Provider, req.Config)
	explainer, ok := backend.(ports.Explainer)
	if !ok {
		return "", fmt.Errorf("backend %s cannot explain commands", backend.Name())
	}

	callCtx, cancel := context.WithTimeout(ctx, req.Config.GetBackendTimeout())
	defer cancel()

	text, err := explainer.Explain(callCtx, req.Command)
	if err != nil {
		if !errors.Is(err, domain.ErrBackend) {
			err = domain.NewBackendError(backend.Name(), err)
		}
		s.Logger.Error("explain failed", err, map[string]interface{}{"provider": backend.Name()})
		return "", fmt.Errorf("explain: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ModelListing describes the models available to one provider.
type ModelListing struct {
	Provider   string
	Configured string
	Default    string
	Available  []string
	Offline    bool
}

// ListModels resolves a backend and asks it for its models. A lookup error is
// returned alongside the static part of the listing.
func (s *Service) ListModels(ctx context.Context, provider string, cfg domain.Config, defaultModel func(string) string) (ModelListing, error) {
	if s.Backends == nil {
		return ModelListing{}, errors.New("generation.Service dependencies not satisfied")
	}
	backend := s.Backends.Resolve(provider, cfg)
	listing := ModelListing{
		Provider:   backend.Name(),
		Configured: cfg.Backend.Model,
		Offline:    isOffline(backend),
	}
	if defaultModel != nil {
		listing.Default = defaultModel(backend.Name())
	}

	lister, ok := backend.(ports.ModelLister)
	if !ok {
		return listing, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.GetBackendTimeout())
	defer cancel()

	models, err := lister.ListModels(callCtx)
	if err != nil {
		return listing, fmt.Errorf("list models: %w", err)
	}
	listing.Available = models
	return listing, nil
}
