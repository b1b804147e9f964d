// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). Following the Ports and Adapters (Hexagonal) pattern,
// these interfaces allow the generation pipeline to remain independent of specific
// implementations like generative backends, storage engines, or CLI frameworks.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., Backend, ConfigProvider)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/gensh/internal/domain"
)

// ConfigProvider loads and persists configuration.
// Implementations typically read from ~/.gensh/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
	Save(domain.Config) error
}

// Backend is a text generation capability. It turns an instruction into raw,
// untrusted text. Missing credentials must degrade to a simulated response;
// transport and API failures are returned as *domain.BackendError.
type Backend interface {
	Name() string
	Generate(ctx context.Context, instruction string) (string, error)
}

// OfflineBackend is implemented by backends that can answer without reaching a
// real model. Offline answers are never cached.
type OfflineBackend interface {
	Backend
	Offline() bool
}

// Explainer is implemented by backends that can describe an existing command
// in plain language. The answer is free text, never a record.
type Explainer interface {
	Explain(ctx context.Context, command string) (string, error)
}

// ModelLister is implemented by backends that can enumerate the models their
// provider exposes.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// BackendResolver selects a Backend by provider name. Unknown names resolve to
// a default implementation instead of failing.
type BackendResolver interface {
	Resolve(name string, cfg domain.Config) Backend
}

// RiskClassifier is a pure, total mapping from command text to risk.
type RiskClassifier interface {
	Evaluate(command string) domain.RiskAssessment
	RiskLevel(command string) domain.RiskLevel
	RequiresConfirmation(command string) bool
	IsDangerous(command string) bool
}

// ResponseParser extracts records and commands from backend text. Absence of a
// match is reported through the boolean, never through an error.
type ResponseParser interface {
	ExtractStructured(text string) (domain.GeneratedRecord, bool)
	ExtractCommandHeuristic(text string) (string, bool)
}

// OutputValidator turns a candidate record into a decision.
type OutputValidator interface {
	Validate(record domain.GeneratedRecord) domain.DecisionRecord
}

// CommandExecutor runs an accepted command inside the sandbox.
type CommandExecutor interface {
	Run(ctx context.Context, command string, timeout time.Duration, dryRun bool) domain.ExecutionOutcome
}

// HistorySink receives one entry per run. Append-only from the core's point of view.
type HistorySink interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
}

// HistoryRepository adds the listing operations the CLI needs on top of HistorySink.
type HistoryRepository interface {
	HistorySink
	Records(limit int, search string) ([]domain.HistoryEntry, error)
	Clear() error
	ExportJSON(dest string) error
	Path() string
}

// ResponseCache stores raw backend text keyed by request fingerprint.
type ResponseCache interface {
	Get(key string) (domain.CacheEntry, bool, error)
	Set(entry domain.CacheEntry) error
}

// Renderer produces human readable blocks for the three values the core supplies.
type Renderer interface {
	CommandBlock(command string) string
	RiskBlock(level domain.RiskLevel, confidence float64) string
	NotesBlock(notes string) string
	OutputBlock(stdout, stderr string) string
}

// ConfirmationPrompter handles interactive user confirmations for risky operations.
type ConfirmationPrompter interface {
	Confirm(level domain.RiskLevel, command string, reasons []string) (bool, error)
	Enabled() bool
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}

// Clipboard copies text to the system clipboard.
type Clipboard interface {
	Copy(text string) error
	Enabled() bool
}
