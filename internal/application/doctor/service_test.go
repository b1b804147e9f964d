package doctor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/infrastructure/history"
)

type stubConfig struct {
	cfg domain.Config
	err error
}

func (s stubConfig) Load(context.Context) (domain.Config, error) { return s.cfg, s.err }
func (s stubConfig) Save(domain.Config) error                    { return nil }

type stubRules struct{ count int }

func (s stubRules) RuleCount() int { return s.count }
func (s stubRules) Source() string { return "embedded defaults" }

type stubWorkspace struct {
	dir string
	err error
}

func (s stubWorkspace) Workdir() string      { return s.dir }
func (s stubWorkspace) EnsureWorkdir() error { return s.err }

func statusOf(report domain.HealthReport, name string) domain.HealthStatus {
	for _, check := range report.Checks {
		if check.Name == name {
			return check.Status
		}
	}
	return ""
}

func newService(t *testing.T, cfg domain.Config) *Service {
	t.Helper()
	dir := t.TempDir()
	return &Service{
		ConfigProvider: stubConfig{cfg: cfg},
		Rules:          stubRules{count: 12},
		Workspace:      stubWorkspace{dir: dir},
		History:        history.NewFileStore(filepath.Join(dir, "history.jsonl")),
		HasCredentials: func(domain.Config, string) bool { return true },
		KnownProvider:  func(string) bool { return true },
	}
}

func TestRun_HealthyEnvironment(t *testing.T) {
	report, err := newService(t, domain.DefaultConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.HasErrors() {
		t.Fatalf("expected no errors, got %+v", report.Checks)
	}
	for _, name := range []string{"Config file", "OS mode", "Backend", "Guardrail", "Sandbox", "History"} {
		if got := statusOf(report, name); got != domain.HealthOK {
			t.Errorf("%s = %q, want ok", name, got)
		}
	}
}

func TestRun_ConfigLoadFailure(t *testing.T) {
	svc := newService(t, domain.Config{})
	svc.ConfigProvider = stubConfig{err: errors.New("corrupt yaml")}

	report, err := svc.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !report.HasErrors() || len(report.Checks) != 1 {
		t.Fatalf("unexpected report: %+v", report.Checks)
	}
}

func TestRun_DegradedChecks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Service, *domain.Config)
		check  string
		want   domain.HealthStatus
	}{
		{
			name:   "missing credentials",
			mutate: func(s *Service, _ *domain.Config) { s.HasCredentials = func(domain.Config, string) bool { return false } },
			check:  "Backend",
			want:   domain.HealthWarn,
		},
		{
			name:   "unknown provider",
			mutate: func(s *Service, _ *domain.Config) { s.KnownProvider = func(string) bool { return false } },
			check:  "Backend",
			want:   domain.HealthWarn,
		},
		{
			name:   "no rules",
			mutate: func(s *Service, _ *domain.Config) { s.Rules = stubRules{} },
			check:  "Guardrail",
			want:   domain.HealthError,
		},
		{
			name:   "sandbox not creatable",
			mutate: func(s *Service, _ *domain.Config) { s.Workspace = stubWorkspace{err: errors.New("read-only")} },
			check:  "Sandbox",
			want:   domain.HealthError,
		},
		{
			name:   "invalid os",
			mutate: func(_ *Service, cfg *domain.Config) { cfg.OS = "beos" },
			check:  "OS mode",
			want:   domain.HealthError,
		},
		{
			name:   "history disabled",
			mutate: func(_ *Service, cfg *domain.Config) { cfg.History.Enabled = false },
			check:  "History",
			want:   domain.HealthWarn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			svc := newService(t, cfg)
			tt.mutate(svc, &cfg)
			svc.ConfigProvider = stubConfig{cfg: cfg}

			report, err := svc.Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := statusOf(report, tt.check); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.check, got, tt.want)
			}
		})
	}
}
