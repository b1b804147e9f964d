package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/gensh/internal/app"
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/infrastructure/config"
	"github.com/doeshing/gensh/internal/infrastructure/ai"
	"github.com/doeshing/gensh/internal/ports"
)

type stubBackend struct {
	raw string
	err error
}

func (s stubBackend) Name() string { return "stub" }

func (s stubBackend) Generate(context.Context, string) (string, error) {
	return s.raw, s.err
}

type stubPrompter struct {
	answer bool
	asked  int
}

func (s *stubPrompter) Confirm(domain.RiskLevel, string, []string) (bool, error) {
	s.asked++
	return s.answer, nil
}

func (s *stubPrompter) Enabled() bool { return true }

func record(command string, confidence float64) string {
	return fmt.Sprintf(`{"command":%q,"explanation":"test record","confidence":%v,"risk_tags":[]}`, command, confidence)
}

// newTestContainer builds a container whose files all live in a temp dir and
// whose backend returns raw.
func newTestContainer(t *testing.T, backend ports.Backend) *app.Container {
	t.Helper()
	dir := t.TempDir()

	cfg := domain.DefaultConfig()
	cfg.General.SafeWorkdir = filepath.Join(dir, "sandbox")
	cfg.Safety.RulesFile = filepath.Join(dir, "no-rules.yaml")
	cfg.Safety.MaxTimeoutSeconds = 5
	cfg.History.Store = domain.HistoryStoreJSONL
	cfg.History.Path = filepath.Join(dir, "history.jsonl")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.NewFileLoader(cfgPath).Save(cfg))

	container, err := app.BuildContainer(context.Background(), app.Options{
		ConfigPath: cfgPath,
		CacheDir:   filepath.Join(dir, "cache"),
		LogOutput:  io.Discard,
	})
	require.NoError(t, err)

	container.Registry.Register("stub", func(domain.Config, ai.Dependencies) ports.Backend { return backend })
	container.Config.Backend.Provider = "stub"
	return container
}

func execute(container *app.Container, ui UI, args ...string) (string, error) {
	root := newRoot(container, ui)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func historyEntries(t *testing.T, container *app.Container) []domain.HistoryEntry {
	t.Helper()
	entries, err := container.HistoryStore.Records(0, "")
	require.NoError(t, err)
	return entries
}

func TestRun_AcceptedCommandIsDryRunByDefault(t *testing.T) {
	container := newTestContainer(t, stubBackend{raw: record("ls -la", 0.95)})

	out, err := execute(container, UI{}, "run", "list files")
	require.NoError(t, err)
	assert.Contains(t, out, "ls -la")
	assert.Contains(t, out, "LOW")
	assert.Contains(t, out, "test record")
	assert.Contains(t, out, "Dry run")

	entries := historyEntries(t, container)
	require.Len(t, entries, 1)
	assert.Equal(t, "list files", entries[0].Instruction)
	assert.True(t, entries[0].DryRun)
	assert.False(t, entries[0].Executed)
	assert.True(t, entries[0].OK)
	assert.Nil(t, entries[0].RC)
}

func TestRun_ExecuteRunsInSandbox(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo is a shell builtin on windows")
	}
	container := newTestContainer(t, stubBackend{raw: record("echo hello", 0.95)})

	out, err := execute(container, UI{}, "run", "--execute", "say hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")

	entries := historyEntries(t, container)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Executed)
	require.NotNil(t, entries[0].RC)
	assert.Equal(t, 0, *entries[0].RC)
}

func TestRun_FailedExecutionExitsOne(t *testing.T) {
	container := newTestContainer(t, stubBackend{raw: record("definitely-not-a-real-binary-xyz", 0.95)})

	_, err := execute(container, UI{}, "run", "--execute", "do something")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	entries := historyEntries(t, container)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].OK)
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		args     []string
		prompter *stubPrompter
		wantCode int
		wantOut  string
	}{
		{name: "dangerous rejected", raw: record("rm -rf /", 0.99), wantCode: ExitRejected, wantOut: "dangerous"},
		{name: "low confidence rejected", raw: record("ls", 0.5), wantCode: ExitRejected, wantOut: "confidence"},
		{name: "prose rejected", raw: "I cannot help with that request.", wantCode: ExitRejected, wantOut: "I cannot help"},
		{name: "medium needs confirmation", raw: record("sudo apt update", 0.95), wantCode: ExitNeedsConfirmation},
		{name: "medium confirmed by flag", raw: record("sudo apt update", 0.95), args: []string{"--confirm"}, wantCode: ExitOK},
		{name: "medium confirmed interactively", raw: record("sudo apt update", 0.95), args: []string{"-i"}, prompter: &stubPrompter{answer: true}, wantCode: ExitOK},
		{name: "medium declined interactively", raw: record("sudo apt update", 0.95), args: []string{"-i"}, prompter: &stubPrompter{answer: false}, wantCode: ExitNeedsConfirmation},
		{name: "backend failure", wantCode: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := stubBackend{raw: tt.raw}
			if tt.name == "backend failure" {
				backend = stubBackend{err: errors.New("connection refused")}
			}
			container := newTestContainer(t, backend)
			ui := UI{}
			if tt.prompter != nil {
				ui.Prompter = tt.prompter
			}

			args := append([]string{"run"}, tt.args...)
			args = append(args, "do the thing")
			out, err := execute(container, ui, args...)

			assert.Equal(t, tt.wantCode, ExitCode(err), "err=%v", err)
			if tt.wantOut != "" {
				assert.Contains(t, out, tt.wantOut)
			}
			if tt.prompter != nil {
				assert.Equal(t, 1, tt.prompter.asked)
			}
		})
	}
}

func TestRun_BackendFailureIsNotARecord(t *testing.T) {
	container := newTestContainer(t, stubBackend{err: errors.New("401 unauthorized")})

	_, err := execute(container, UI{}, "run", "list files")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401 unauthorized")
	assert.Empty(t, historyEntries(t, container))
}

func TestRootArgsBehaveLikeRun(t *testing.T) {
	container := newTestContainer(t, stubBackend{raw: record("ls -la", 0.95)})

	out, err := execute(container, UI{}, "list", "files")
	require.NoError(t, err)
	assert.Contains(t, out, "ls -la")
}

func TestExec_Gates(t *testing.T) {
	tests := []struct {
		name     string
		flags    []string
		command  []string
		prompter *stubPrompter
		wantCode int
	}{
		{name: "low risk runs", command: []string{"ls", "-la"}, wantCode: ExitOK},
		{name: "dangerous needs confirmation", command: []string{"rm", "-rf", "/"}, wantCode: ExitNeedsConfirmation},
		{name: "interactive yes is not an override", flags: []string{"-i"}, command: []string{"rm", "-rf", "/"}, prompter: &stubPrompter{answer: true}, wantCode: ExitDangerous},
		{name: "flag overrides as dry run", flags: []string{"--confirm"}, command: []string{"rm", "-rf", "/"}, wantCode: ExitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container := newTestContainer(t, stubBackend{})
			ui := UI{}
			if tt.prompter != nil {
				ui.Prompter = tt.prompter
			}
			args := append([]string{"exec"}, tt.flags...)
			args = append(append(args, "--"), tt.command...)
			_, err := execute(container, ui, args...)
			assert.Equal(t, tt.wantCode, ExitCode(err), "err=%v", err)
		})
	}
}

func TestShow(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		container := newTestContainer(t, stubBackend{raw: record("df -h", 0.95)})
		out, err := execute(container, UI{}, "show", "disk usage")
		require.NoError(t, err)
		assert.Contains(t, out, "df -h")
		assert.Empty(t, historyEntries(t, container))
	})

	t.Run("rejected keeps model output", func(t *testing.T) {
		raw := record("rm -rf /", 0.99)
		container := newTestContainer(t, stubBackend{raw: raw})
		out, err := execute(container, UI{}, "show", "wipe")
		assert.Equal(t, ExitRejected, ExitCode(err))
		assert.Contains(t, out, "dangerous")
		assert.Contains(t, out, `"rm -rf /"`)
	})

	t.Run("json", func(t *testing.T) {
		container := newTestContainer(t, stubBackend{raw: record("pwd", 0.95)})
		out, err := execute(container, UI{}, "show", "--json", "where am i")
		require.NoError(t, err)
		assert.Contains(t, out, `"need_confirmation": false`)
		assert.Contains(t, out, `"command": "pwd"`)
	})
}

func TestExplain_NoBackendCall(t *testing.T) {
	container := newTestContainer(t, stubBackend{err: errors.New("must not be called")})

	out, err := execute(container, UI{}, "explain", "You can run `rm -rf /` to do that.")
	require.NoError(t, err)
	assert.Contains(t, out, "rm -rf /")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "Explanation not available")
}

type explainingBackend struct {
	stubBackend
	explanation string
	asked       []string
}

func (e *explainingBackend) Explain(_ context.Context, command string) (string, error) {
	e.asked = append(e.asked, command)
	return e.explanation, e.err
}

func TestExplain_AskUsesBackend(t *testing.T) {
	backend := &explainingBackend{explanation: "Purpose: archive src\nMain Effect: writes a.tgz\nRisk: Minimal"}
	container := newTestContainer(t, backend)

	out, err := execute(container, UI{}, "explain", "--ask", "COMMAND: tar -czf a.tgz src")
	require.NoError(t, err)
	assert.Equal(t, []string{"tar -czf a.tgz src"}, backend.asked)
	assert.Contains(t, out, "tar -czf a.tgz src")
	assert.Contains(t, out, "Main Effect: writes a.tgz")
	assert.NotContains(t, out, "Explanation not available")
}

func TestExplain_AskBackendFailureExitsOne(t *testing.T) {
	container := newTestContainer(t, &explainingBackend{stubBackend: stubBackend{err: errors.New("quota exceeded")}})

	_, err := execute(container, UI{}, "explain", "--ask", "ls -la")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestModelsCommands(t *testing.T) {
	container := newTestContainer(t, stubBackend{})

	out, err := execute(container, UI{}, "models", "list", "-p", "simulated")
	require.NoError(t, err)
	assert.Contains(t, out, "Provider: simulated")
	assert.Contains(t, out, "Configured model: (provider default)")
	assert.Contains(t, out, "* simulated")
	assert.Contains(t, out, "offline with simulated output")

	out, err = execute(container, UI{}, "models", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Provider: stub")
	assert.Contains(t, out, "Available models: none reported")

	out, err = execute(container, UI{}, "models", "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "ollama")
	assert.Contains(t, out, "stub\t-\tok\t*")

	out, err = execute(container, UI{}, "models", "use", "gpt-4o")
	require.NoError(t, err)
	assert.Contains(t, out, "backend.model = gpt-4o")
	assert.Equal(t, "gpt-4o", container.Config.Backend.Model)

	_, err = execute(container, UI{}, "models", "use", "default")
	require.NoError(t, err)
	assert.Empty(t, container.Config.Backend.Model)
}

func TestConfigAndOSCommands(t *testing.T) {
	container := newTestContainer(t, stubBackend{})

	_, err := execute(container, UI{}, "config", "set", "safety.min_confidence_to_auto_run", "0.75")
	require.NoError(t, err)
	out, err := execute(container, UI{}, "config", "get", "safety.min_confidence_to_auto_run")
	require.NoError(t, err)
	assert.Equal(t, "0.75\n", out)

	_, err = execute(container, UI{}, "config", "set", "safety.min_confidence_to_auto_run", "2")
	assert.ErrorIs(t, err, domain.ErrInvalidConfigValue)

	_, err = execute(container, UI{}, "config", "get", "nope.key")
	assert.ErrorIs(t, err, domain.ErrUnknownConfigKey)

	_, err = execute(container, UI{}, "config", "set", "backend.openai_api_key", "sk-secret-value")
	require.NoError(t, err)
	out, err = execute(container, UI{}, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-secret-value")
	assert.Contains(t, out, "alue")

	out, err = execute(container, UI{}, "config", "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "0.75")
	assert.NotContains(t, out, "sk-secret-value")

	out, err = execute(container, UI{}, "os", "mac")
	require.NoError(t, err)
	assert.Contains(t, out, "mac")
	cfg, err := container.ConfigProvider.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OSMac, cfg.OS)

	_, err = execute(container, UI{}, "os", "set", "beos")
	assert.ErrorIs(t, err, domain.ErrInvalidConfigValue)
}

func TestHistoryCommands(t *testing.T) {
	container := newTestContainer(t, stubBackend{raw: record("git status", 0.95)})
	_, err := execute(container, UI{}, "run", "check repo")
	require.NoError(t, err)

	out, err := execute(container, UI{}, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "git status")
	assert.Contains(t, out, "dry-run")

	out, err = execute(container, UI{}, "history", "search", "repo")
	require.NoError(t, err)
	assert.Contains(t, out, "check repo")

	out, err = execute(container, UI{}, "history", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries analyzed: 1")

	dest := filepath.Join(t.TempDir(), "export.jsonl")
	_, err = execute(container, UI{}, "history", "export", dest)
	require.NoError(t, err)

	_, err = execute(container, UI{}, "history", "clear")
	require.NoError(t, err)
	out, err = execute(container, UI{}, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No history recorded yet.")
}

func TestVersionAndDoctor(t *testing.T) {
	container := newTestContainer(t, stubBackend{})

	out, err := execute(container, UI{}, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gensh version "))

	out, err = execute(container, UI{}, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] Guardrail")
	assert.Contains(t, out, "[OK] Sandbox")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitDangerous, ExitCode(fmt.Errorf("wrapped: %w", exitf(ExitDangerous, "no"))))
}
