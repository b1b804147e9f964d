package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/pkg/logger"
	"github.com/doeshing/gensh/internal/ports"
)

const recordJSON = `{"command":"ls -la","explanation":"list all files","confidence":0.95,"risk_tags":[]}`

func clearKeys(t *testing.T) {
	t.Helper()
	t.Setenv(envGoogleAPIKey, "")
	t.Setenv(envOpenAIAPIKey, "")
	t.Setenv(envAnthropicAPIKey, "")
}

func testDeps() Dependencies {
	return Dependencies{HTTPClient: &http.Client{Timeout: 5 * time.Second}, Logger: logger.Nop()}
}

func TestRegistryResolvesKnownAndFallsBack(t *testing.T) {
	registry := NewRegistry(logger.Nop())
	cfg := domain.DefaultConfig()

	tests := []struct {
		name string
		want string
	}{
		{"", ProviderSimulated},
		{"simulated", ProviderSimulated},
		{"Google", ProviderGoogle},
		{"gemini", ProviderGoogle},
		{"openai", ProviderOpenAI},
		{"claude", ProviderAnthropic},
		{"ollama", ProviderOllama},
		{"does-not-exist", ProviderSimulated},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, registry.Resolve(tt.name, cfg).Name(), "provider %q", tt.name)
	}
	assert.Equal(t, []string{"anthropic", "google", "ollama", "openai", "simulated"}, registry.Names())
}

func TestRegistryUsesConfiguredProvider(t *testing.T) {
	registry := NewRegistry(logger.Nop())
	cfg := domain.DefaultConfig()
	cfg.Backend.Provider = "ollama"

	assert.Equal(t, ProviderOllama, registry.Resolve("", cfg).Name())
}

func TestRegistryCustomProvider(t *testing.T) {
	registry := NewEmptyRegistry(testDeps())
	registry.Register("Echo", func(domain.Config, Dependencies) ports.Backend {
		return NewSimulated(domain.OSMac)
	})
	assert.True(t, registry.Has("echo"))
	assert.False(t, registry.Has("google"))
}

func TestSimulatedBackendIsDeterministicJSON(t *testing.T) {
	backend := NewSimulated(domain.OSWindows)

	first, err := backend.Generate(context.Background(), `say "hi"`)
	require.NoError(t, err)
	second, err := backend.Generate(context.Background(), `say "hi"`)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(first), &record))
	assert.Equal(t, `echo "Simulated command for: say \"hi\""`, record["command"])
	assert.Equal(t, SimulatedConfidence, record["confidence"])
}

func TestSimulatedBackendFollowsDialect(t *testing.T) {
	tests := []struct {
		os   domain.TargetOS
		want string
	}{
		{domain.OSWindows, "dir"},
		{domain.OSLinux, "ls -la"},
		{domain.OSMac, "ls -la"},
	}
	for _, tt := range tests {
		raw, err := NewSimulated(tt.os).Generate(context.Background(), "list files here")
		require.NoError(t, err)
		assert.Contains(t, raw, `"command":"`+tt.want+`"`)
	}
}

func TestSimulatedBackendHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulated(domain.OSLinux).Generate(ctx, "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBackend))
}

func TestCloudBackendsDegradeWithoutCredentials(t *testing.T) {
	clearKeys(t)
	cfg := domain.DefaultConfig()

	for _, backend := range []interface {
		Generate(context.Context, string) (string, error)
	}{
		NewGoogle(cfg, testDeps()),
		NewOpenAI(cfg, testDeps()),
		NewAnthropic(cfg, testDeps()),
	} {
		raw, err := backend.Generate(context.Background(), "list files")
		require.NoError(t, err)
		assert.Contains(t, raw, `"command":"ls -la"`)
	}
	assert.False(t, HasCredentials(cfg, "google"))
	assert.True(t, HasCredentials(cfg, "ollama"))
}

func TestResolveAPIKeyPrefersConfig(t *testing.T) {
	t.Setenv(envGoogleAPIKey, "from-env")
	cfg := domain.DefaultConfig()

	assert.Equal(t, "from-env", resolveAPIKey(cfg, ProviderGoogle, envGoogleAPIKey))
	cfg.Backend.GoogleAPIKey = "from-config"
	assert.Equal(t, "from-config", resolveAPIKey(cfg, ProviderGoogle, envGoogleAPIKey))
}

func TestGoogleBackend(t *testing.T) {
	var gotPath, gotKey string
	var gotBody googleRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":`+quote(recordJSON)+`}]}}]}`)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.OS = domain.OSMac
	cfg.Backend.GoogleAPIKey = "g-key"
	backend := NewGoogle(cfg, testDeps()).(*googleBackend)
	backend.baseURL = server.URL

	raw, err := backend.Generate(context.Background(), "list files")
	require.NoError(t, err)
	assert.Equal(t, recordJSON, raw)
	assert.Equal(t, "/models/"+defaultGoogleModel+":generateContent", gotPath)
	assert.Equal(t, "g-key", gotKey)
	require.NotNil(t, gotBody.SystemInstruction)
	assert.Contains(t, gotBody.SystemInstruction.Parts[0].Text, "macOS")
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "list files")
}

func TestAnthropicBackend(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":`+quote(recordJSON)+`}]}`)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.AnthropicAPIKey = "a-key"
	backend := NewAnthropic(cfg, testDeps()).(*anthropicBackend)
	backend.endpoint = server.URL

	raw, err := backend.Generate(context.Background(), "list files")
	require.NoError(t, err)
	assert.Equal(t, recordJSON, raw)
	assert.Equal(t, "a-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, gotHeaders.Get("anthropic-version"))
}

func TestOllamaBackend(t *testing.T) {
	var gotBody ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"response":`+quote(recordJSON)+`,"done":true}`)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.OllamaEndpoint = server.URL + "/"
	raw, err := NewOllama(cfg, testDeps()).Generate(context.Background(), "list files")
	require.NoError(t, err)
	assert.Equal(t, recordJSON, raw)
	assert.Equal(t, "json", gotBody.Format)
	assert.False(t, gotBody.Stream)
	assert.Equal(t, defaultOllamaModel, gotBody.Model)
}

func TestOpenAIBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer o-key", r.Header.Get("Authorization"))
		w.Header().Set("content-type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":`+quote(recordJSON)+`},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.OpenAIAPIKey = "o-key"
	backend := newOpenAIBackend(cfg, testDeps(), server.URL+"/v1")

	raw, err := backend.Generate(context.Background(), "list files")
	require.NoError(t, err)
	assert.Equal(t, recordJSON, raw)
}

func TestBackendsReportTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.GoogleAPIKey = "k"
	cfg.Backend.AnthropicAPIKey = "k"
	cfg.Backend.OpenAIAPIKey = "k"
	cfg.Backend.OllamaEndpoint = server.URL

	google := NewGoogle(cfg, testDeps()).(*googleBackend)
	google.baseURL = server.URL
	anthropic := NewAnthropic(cfg, testDeps()).(*anthropicBackend)
	anthropic.endpoint = server.URL

	backends := map[string]interface {
		Generate(context.Context, string) (string, error)
	}{
		ProviderGoogle:    google,
		ProviderAnthropic: anthropic,
		ProviderOllama:    NewOllama(cfg, testDeps()),
		ProviderOpenAI:    newOpenAIBackend(cfg, testDeps(), server.URL+"/v1"),
	}
	for name, backend := range backends {
		_, err := backend.Generate(context.Background(), "list files")
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, domain.ErrBackend), name)

		var backendErr *domain.BackendError
		require.True(t, errors.As(err, &backendErr), name)
		assert.Equal(t, name, backendErr.Provider)
	}
}

func TestBackendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.OllamaEndpoint = url
	_, err := NewOllama(cfg, testDeps()).Generate(context.Background(), "list files")
	assert.True(t, errors.Is(err, domain.ErrBackend))
}

func TestRenderPromptMentionsDialect(t *testing.T) {
	system, user, err := renderPrompt(domain.OSWindows, "  show files  ")
	require.NoError(t, err)
	assert.Contains(t, system, "Windows")
	assert.Contains(t, system, `"confidence"`)
	assert.Equal(t, `Instruction: "show files"`, user)
}

func TestBackendsReportOfflineWithoutCredentials(t *testing.T) {
	clearKeys(t)
	cfg := domain.DefaultConfig()

	for _, backend := range []ports.Backend{
		NewSimulated(domain.OSLinux),
		NewGoogle(cfg, testDeps()),
		NewOpenAI(cfg, testDeps()),
		NewAnthropic(cfg, testDeps()),
	} {
		offline, ok := backend.(ports.OfflineBackend)
		require.True(t, ok, backend.Name())
		assert.True(t, offline.Offline(), backend.Name())
	}

	cfg.Backend.GoogleAPIKey = "k"
	cfg.Backend.OpenAIAPIKey = "k"
	cfg.Backend.AnthropicAPIKey = "k"
	for _, backend := range []ports.Backend{
		NewGoogle(cfg, testDeps()),
		NewOpenAI(cfg, testDeps()),
		NewAnthropic(cfg, testDeps()),
		NewOllama(cfg, testDeps()),
	} {
		assert.False(t, backend.(ports.OfflineBackend).Offline(), backend.Name())
	}
}

func TestExplainWithoutCredentialsIsSimulated(t *testing.T) {
	clearKeys(t)
	text, err := NewAnthropic(domain.DefaultConfig(), testDeps()).(ports.Explainer).Explain(context.Background(), "du -sh .")
	require.NoError(t, err)
	assert.Contains(t, text, "Purpose: Runs the du program")
	assert.Contains(t, text, "Main Effect:")
	assert.Contains(t, text, "Risk:")

	_, err = NewSimulated(domain.OSLinux).(ports.Explainer).Explain(context.Background(), "   ")
	assert.True(t, errors.Is(err, domain.ErrBackend))
}

func TestGoogleExplainSendsExplainPrompt(t *testing.T) {
	var gotBody googleRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Purpose: x\nMain Effect: y\nRisk: Minimal"}]}}]}`)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.GoogleAPIKey = "g-key"
	backend := NewGoogle(cfg, testDeps()).(*googleBackend)
	backend.baseURL = server.URL

	text, err := backend.Explain(context.Background(), "tar -czf a.tgz src")
	require.NoError(t, err)
	assert.Equal(t, "Purpose: x\nMain Effect: y\nRisk: Minimal", text)
	assert.Empty(t, gotBody.GenerationConfig.ResponseMimeType)
	assert.Contains(t, gotBody.SystemInstruction.Parts[0].Text, "Main Effect")
	assert.Equal(t, "COMMAND:\ntar -czf a.tgz src", gotBody.Contents[0].Parts[0].Text)
}

func TestOllamaExplainUsesFreeText(t *testing.T) {
	var gotBody ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"response":"Purpose: x","done":true}`)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.OllamaEndpoint = server.URL
	text, err := NewOllama(cfg, testDeps()).(ports.Explainer).Explain(context.Background(), "ls")
	require.NoError(t, err)
	assert.Equal(t, "Purpose: x", text)
	assert.Empty(t, gotBody.Format)
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		switch {
		case r.URL.Path == "/models" && r.Header.Get("x-goog-api-key") != "":
			_, _ = io.WriteString(w, `{"models":[{"name":"models/gemini-1.5-pro"},{"name":"models/gemini-1.5-flash"}]}`)
		case r.URL.Path == "/v1/models" && r.Header.Get("x-api-key") != "":
			_, _ = io.WriteString(w, `{"data":[{"id":"claude-3-5-sonnet-latest"},{"id":"claude-3-5-haiku-latest"}]}`)
		case r.URL.Path == "/v1/models":
			_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"},{"id":"gpt-4o","object":"model"}]}`)
		case r.URL.Path == "/api/tags":
			_, _ = io.WriteString(w, `{"models":[{"name":"llama3.2:latest"},{"name":"codellama:7b"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.GoogleAPIKey = "g"
	cfg.Backend.AnthropicAPIKey = "a"
	cfg.Backend.OpenAIAPIKey = "o"
	cfg.Backend.OllamaEndpoint = server.URL

	google := NewGoogle(cfg, testDeps()).(*googleBackend)
	google.baseURL = server.URL
	anthropic := NewAnthropic(cfg, testDeps()).(*anthropicBackend)
	anthropic.endpoint = server.URL + "/v1/messages"

	tests := []struct {
		backend ports.ModelLister
		want    []string
	}{
		{google, []string{"gemini-1.5-flash", "gemini-1.5-pro"}},
		{anthropic, []string{"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"}},
		{newOpenAIBackend(cfg, testDeps(), server.URL+"/v1"), []string{"gpt-4o", "gpt-4o-mini"}},
		{NewOllama(cfg, testDeps()).(ports.ModelLister), []string{"codellama:7b", "llama3.2:latest"}},
		{NewSimulated(domain.OSLinux).(ports.ModelLister), []string{ProviderSimulated}},
	}
	for _, tt := range tests {
		got, err := tt.backend.ListModels(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestListModelsNeedsCredentials(t *testing.T) {
	clearKeys(t)
	_, err := NewOpenAI(domain.DefaultConfig(), testDeps()).(ports.ModelLister).ListModels(context.Background())
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Equal(t, defaultOpenAIModel, DefaultModel("gpt"))
	assert.Equal(t, defaultGoogleModel, DefaultModel("Gemini"))
	assert.Empty(t, DefaultModel("unknown"))
}

func TestResponseBodyIsBounded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":"`+strings.Repeat("a", maxResponseBody+16)+`"}`)
	}))
	defer server.Close()

	cfg := domain.DefaultConfig()
	cfg.Backend.OllamaEndpoint = server.URL
	_, err := NewOllama(cfg, testDeps()).Generate(context.Background(), "list files")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBackend))
	assert.Contains(t, err.Error(), "exceeds")
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
