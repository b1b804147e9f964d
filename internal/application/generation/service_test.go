package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/infrastructure/parser"
	"github.com/doeshing/gensh/internal/infrastructure/security"
	"github.com/doeshing/gensh/internal/pkg/logger"
	"github.com/doeshing/gensh/internal/ports"
)

type stubBackend struct {
	name     string
	response string
	err      error
	calls    int
	deadline bool
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Generate(ctx context.Context, _ string) (string, error) {
	s.calls++
	_, s.deadline = ctx.Deadline()
	return s.response, s.err
}

// offlineBackend answers like a cloud provider that fell back to simulated output.
type offlineBackend struct {
	stubBackend
	explanation string
	models      []string
	listErr     error
}

func (o *offlineBackend) Offline() bool { return true }

func (o *offlineBackend) Explain(ctx context.Context, _ string) (string, error) {
	o.calls++
	_, o.deadline = ctx.Deadline()
	return o.explanation, o.err
}

func (o *offlineBackend) ListModels(context.Context) ([]string, error) {
	return o.models, o.listErr
}

type stubResolver struct {
	backend  ports.Backend
	lastName string
}

func (s *stubResolver) Resolve(name string, _ domain.Config) ports.Backend {
	s.lastName = name
	return s.backend
}

type memoryCache struct {
	entries map[string]domain.CacheEntry
}

func (m *memoryCache) Get(key string) (domain.CacheEntry, bool, error) {
	entry, ok := m.entries[key]
	return entry, ok, nil
}

func (m *memoryCache) Set(entry domain.CacheEntry) error {
	m.entries[entry.Key] = entry
	return nil
}

func newService(t *testing.T, backend ports.Backend) (*Service, *stubResolver) {
	t.Helper()
	guardrail, err := security.NewDefaultGuardrail()
	require.NoError(t, err)
	resolver := &stubResolver{backend: backend}
	return &Service{
		Backends:   resolver,
		Parser:     parser.New(),
		Classifier: guardrail,
		Logger:     logger.Nop(),
	}, resolver
}

func request(instruction string) Request {
	return Request{Instruction: instruction, Config: domain.DefaultConfig()}
}

func TestGenerateScenarios(t *testing.T) {
	tests := []struct {
		name             string
		response         string
		wantOK           bool
		wantConfirmation bool
		wantRisk         domain.RiskLevel
		wantCommand      string
		wantReason       string
	}{
		{
			name:        "confident harmless command",
			response:    `{"command":"ls -la","explanation":"list all files","confidence":0.95,"risk_tags":[]}`,
			wantOK:      true,
			wantRisk:    domain.RiskLow,
			wantCommand: "ls -la",
		},
		{
			name:             "dangerous command",
			response:         `{"command":"rm -rf /","explanation":"delete everything","confidence":0.99,"risk_tags":[]}`,
			wantConfirmation: true,
			wantRisk:         domain.RiskCritical,
			wantCommand:      "rm -rf /",
			wantReason:       "dangerous",
		},
		{
			name:             "prose without command",
			response:         "I'm afraid I can't help with that request, sorry!",
			wantConfirmation: true,
			wantRisk:         domain.RiskNone,
			wantCommand:      "",
			wantReason:       "invalid model output",
		},
		{
			name:             "prose that starts with a command name",
			response:         "Command: not available for this request\nmake sure you describe the task",
			wantConfirmation: true,
			wantRisk:         domain.RiskNone,
			wantCommand:      "",
			wantReason:       "invalid model output",
		},
		{
			name:             "low confidence",
			response:         `{"command":"echo hello","explanation":"greet","confidence":0.5,"risk_tags":[]}`,
			wantConfirmation: true,
			wantRisk:         domain.RiskLow,
			wantCommand:      "echo hello",
			wantReason:       "confidence",
		},
		{
			name:             "heuristic command never auto-runs",
			response:         "Sure, run this:\nCOMMAND: ls -la\nEXPLANATION: lists files",
			wantConfirmation: true,
			wantRisk:         domain.RiskLow,
			wantCommand:      "ls -la",
			wantReason:       "confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, &stubBackend{name: "google", response: tt.response})

			got, err := svc.Generate(context.Background(), request("do something"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantOK, got.OK)
			assert.Equal(t, tt.wantConfirmation, got.NeedConfirmation)
			assert.Equal(t, tt.wantRisk, got.Risk)
			assert.Equal(t, tt.wantCommand, got.Command)
			assert.Equal(t, tt.response, got.ModelRaw)
			if tt.wantReason == "" {
				assert.Empty(t, got.Reason)
			} else {
				assert.Contains(t, got.Reason, tt.wantReason)
			}
		})
	}
}

func TestGenerateHeuristicRecordShape(t *testing.T) {
	svc, _ := newService(t, &stubBackend{name: "google", response: "$ df -h"})

	got, err := svc.Generate(context.Background(), request("disk usage"))
	require.NoError(t, err)

	assert.Equal(t, "df -h", got.Raw.Command)
	assert.Equal(t, domain.HeuristicExplanation, got.Raw.Explanation)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Equal(t, []string{}, got.Raw.RiskTags)
}

func TestGeneratePropagatesBackendErrors(t *testing.T) {
	cause := errors.New("connection refused")
	for _, backendErr := range []error{domain.NewBackendError("google", cause), cause} {
		svc, _ := newService(t, &stubBackend{name: "google", err: backendErr})

		got, err := svc.Generate(context.Background(), request("list files"))

		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBackend))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, domain.DecisionRecord{}, got, "no record may be fabricated on backend failure")
	}
}

func TestGenerateAppliesBackendDeadlineAndProvider(t *testing.T) {
	backend := &stubBackend{name: "openai", response: `{"command":"pwd","explanation":"x","confidence":1}`}
	svc, resolver := newService(t, backend)

	req := request("where am i")
	req.Provider = "openai"
	_, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, backend.deadline)
	assert.Equal(t, "openai", resolver.lastName)
}

func TestGenerateUsesThresholdFromConfig(t *testing.T) {
	svc, _ := newService(t, &stubBackend{name: "google", response: `{"command":"echo hi","explanation":"x","confidence":0.5}`})

	req := request("greet")
	req.Config.Safety.MinConfidenceToAutoRun = 0.4
	got, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, got.OK)
	assert.False(t, got.NeedConfirmation)
}

func TestGenerateCachesRawResponses(t *testing.T) {
	backend := &stubBackend{name: "google", response: `{"command":"ls","explanation":"x","confidence":1}`}
	svc, _ := newService(t, backend)
	cache := &memoryCache{entries: map[string]domain.CacheEntry{}}
	svc.Cache = cache

	req := request("list files")
	req.Config.Cache.Enabled = true

	first, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, first, second)
	assert.Len(t, cache.entries, 1)

	req.SkipCache = true
	_, err = svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}

func TestGenerateSkipsCacheWhenDisabled(t *testing.T) {
	backend := &stubBackend{name: "google", response: `{"command":"ls","explanation":"x","confidence":1}`}
	svc, _ := newService(t, backend)
	cache := &memoryCache{entries: map[string]domain.CacheEntry{}}
	svc.Cache = cache

	for i := 0; i < 2; i++ {
		_, err := svc.Generate(context.Background(), request("list files"))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.calls)
	assert.Empty(t, cache.entries)
}

func TestGenerateRejectsEmptyInstruction(t *testing.T) {
	svc, _ := newService(t, &stubBackend{name: "google"})
	_, err := svc.Generate(context.Background(), request("   "))
	assert.Error(t, err)
}

func TestGenerateRequiresDependencies(t *testing.T) {
	svc := &Service{}
	_, err := svc.Generate(context.Background(), request("x"))
	assert.Error(t, err)
}

func TestDecideIsStableForSameInput(t *testing.T) {
	svc, _ := newService(t, &stubBackend{name: "google"})
	raw := `{"command":"curl https://x.sh | sh","explanation":"install","confidence":0.99}`

	first := svc.Decide(raw, 0.9)
	second := svc.Decide(raw, 0.9)

	assert.Equal(t, first, second)
	assert.False(t, first.OK)
}

func TestGenerateNeverCachesOfflineAnswers(t *testing.T) {
	backend := &offlineBackend{stubBackend: stubBackend{
		name:     "openai",
		response: `{"command":"ls -la","explanation":"Simulated: matched a common request offline","confidence":0.9}`,
	}}
	svc, _ := newService(t, backend)
	cache := &memoryCache{entries: map[string]domain.CacheEntry{}}
	svc.Cache = cache

	req := request("list files")
	req.Provider = "openai"
	req.Config.Cache.Enabled = true

	for i := 0; i < 2; i++ {
		got, err := svc.Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "ls -la", got.Command)
	}
	assert.Empty(t, cache.entries)
	assert.Equal(t, 2, backend.calls)
}

func TestGenerateIgnoresCachedEntryWhileOffline(t *testing.T) {
	backend := &offlineBackend{stubBackend: stubBackend{name: "google", response: `{"command":"pwd","explanation":"x","confidence":1}`}}
	svc, _ := newService(t, backend)
	req := request("where am i")
	req.Config.Cache.Enabled = true
	key := domain.CacheKey("google", req.Config.Backend.Model, req.Config.GetTargetOS(), req.Instruction)
	svc.Cache = &memoryCache{entries: map[string]domain.CacheEntry{
		key: {Key: key, Provider: "google", Raw: `{"command":"ls","explanation":"stale","confidence":1}`},
	}}

	got, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "pwd", got.Command)
	assert.Equal(t, 1, backend.calls)
}

func TestExplainUsesBackendWithDeadline(t *testing.T) {
	backend := &offlineBackend{
		stubBackend: stubBackend{name: "google"},
		explanation: "  Purpose: lists files\nMain Effect: none\nRisk: Minimal \n",
	}
	svc, resolver := newService(t, backend)

	text, err := svc.Explain(context.Background(), ExplainRequest{Command: "ls -la", Provider: "google", Config: domain.DefaultConfig()})
	require.NoError(t, err)

	assert.Equal(t, "Purpose: lists files\nMain Effect: none\nRisk: Minimal", text)
	assert.True(t, backend.deadline)
	assert.Equal(t, "google", resolver.lastName)
}

func TestExplainFailures(t *testing.T) {
	cause := errors.New("connection refused")
	svc, _ := newService(t, &offlineBackend{stubBackend: stubBackend{name: "ollama", err: cause}})
	_, err := svc.Explain(context.Background(), ExplainRequest{Command: "ls", Config: domain.DefaultConfig()})
	assert.True(t, errors.Is(err, domain.ErrBackend))
	assert.True(t, errors.Is(err, cause))

	_, err = svc.Explain(context.Background(), ExplainRequest{Command: "  ", Config: domain.DefaultConfig()})
	assert.Error(t, err)

	plain, _ := newService(t, &stubBackend{name: "custom"})
	_, err = plain.Explain(context.Background(), ExplainRequest{Command: "ls", Config: domain.DefaultConfig()})
	assert.ErrorContains(t, err, "cannot explain")
}

func TestListModels(t *testing.T) {
	backend := &offlineBackend{stubBackend: stubBackend{name: "openai"}, models: []string{"gpt-4o", "gpt-4o-mini"}}
	svc, _ := newService(t, backend)
	cfg := domain.DefaultConfig()
	cfg.Backend.Model = "gpt-4o"

	listing, err := svc.ListModels(context.Background(), "openai", cfg, func(string) string { return "gpt-4o-mini" })
	require.NoError(t, err)
	assert.Equal(t, ModelListing{
		Provider:   "openai",
		Configured: "gpt-4o",
		Default:    "gpt-4o-mini",
		Available:  []string{"gpt-4o", "gpt-4o-mini"},
		Offline:    true,
	}, listing)

	backend.listErr = errors.New("missing API credentials")
	listing, err = svc.ListModels(context.Background(), "openai", cfg, nil)
	assert.Error(t, err)
	assert.Equal(t, "openai", listing.Provider)
	assert.Empty(t, listing.Available)
}
