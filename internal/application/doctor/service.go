// Package doctor runs environment diagnostics for the CLI.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	appconfig "github.com/doeshing/gensh/internal/application/config"
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// RuleSet describes the loaded guardrail rules.
type RuleSet interface {
	RuleCount() int
	Source() string
}

// Workspace is the sandbox directory the executor runs in.
type Workspace interface {
	Workdir() string
	EnsureWorkdir() error
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Rules          RuleSet
	Workspace      Workspace
	History        ports.HistoryRepository
	// HasCredentials reports whether a provider can reach its real API.
	HasCredentials func(cfg domain.Config, provider string) bool
	// KnownProvider reports whether a provider name is registered.
	KnownProvider func(provider string) bool
}

// Run executes checks and returns a report. The error is only set when the
// config cannot be loaded at all.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, warn("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, osCheck(cfg))
	checks = append(checks, s.providerCheck(cfg))
	checks = append(checks, s.guardrailCheck())
	checks = append(checks, s.sandboxCheck())
	checks = append(checks, s.historyCheck(cfg))

	return domain.HealthReport{Checks: checks}, nil
}

func osCheck(cfg domain.Config) domain.HealthCheck {
	if !cfg.OS.Valid() {
		return fail("OS mode", fmt.Sprintf("%q is not one of windows|linux|mac", cfg.OS))
	}
	return ok("OS mode", cfg.OS.DisplayName())
}

func (s *Service) providerCheck(cfg domain.Config) domain.HealthCheck {
	provider := cfg.GetProvider()
	if s.KnownProvider != nil && !s.KnownProvider(provider) {
		return warn("Backend", fmt.Sprintf("unknown provider %q, simulated backend will be used", provider))
	}
	if s.HasCredentials != nil && !s.HasCredentials(cfg, provider) {
		return warn("Backend", fmt.Sprintf("%s has no API key, responses will be simulated", provider))
	}
	return ok("Backend", provider)
}

func (s *Service) guardrailCheck() domain.HealthCheck {
	if s.Rules == nil {
		return fail("Guardrail", "risk classifier not initialized")
	}
	if s.Rules.RuleCount() == 0 {
		return fail("Guardrail", "no rules loaded")
	}
	return ok("Guardrail", fmt.Sprintf("%d rules from %s", s.Rules.RuleCount(), s.Rules.Source()))
}

func (s *Service) sandboxCheck() domain.HealthCheck {
	if s.Workspace == nil {
		return fail("Sandbox", "executor not initialized")
	}
	if err := s.Workspace.EnsureWorkdir(); err != nil {
		return fail("Sandbox", err.Error())
	}
	scratch, err := os.CreateTemp(s.Workspace.Workdir(), ".doctor-*")
	if err != nil {
		return fail("Sandbox", fmt.Sprintf("%s is not writable: %v", s.Workspace.Workdir(), err))
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(name)
	return ok("Sandbox", s.Workspace.Workdir())
}

func (s *Service) historyCheck(cfg domain.Config) domain.HealthCheck {
	if !cfg.History.Enabled {
		return warn("History", "disabled")
	}
	if s.History == nil {
		return warn("History", "store unavailable")
	}
	if _, err := s.History.Records(1, ""); err != nil {
		return fail("History", fmt.Sprintf("%s: %v", s.History.Path(), err))
	}
	return ok("History", fmt.Sprintf("%s (%s)", filepath.Base(s.History.Path()), cfg.GetHistoryStore()))
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
