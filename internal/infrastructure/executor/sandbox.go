// Package executor runs accepted commands inside the sandbox directory.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/pkg/filesystem"
	"github.com/doeshing/gensh/internal/ports"
)

// Sandbox spawns commands without a shell, in a fixed working directory,
// under a hard timeout. Failures are reported in the outcome, never as errors.
type Sandbox struct {
	workdir        string
	defaultTimeout time.Duration
	logger         ports.Logger
}

// NewSandbox builds a sandbox rooted at workdir (~ is expanded). defaultTimeout
// applies whenever Run receives a non-positive timeout.
func NewSandbox(workdir string, defaultTimeout time.Duration, logger ports.Logger) *Sandbox {
	if defaultTimeout <= 0 {
		defaultTimeout = domain.DefaultMaxTimeoutSeconds * time.Second
	}
	return &Sandbox{
		workdir:        filesystem.ExpandPath(workdir),
		defaultTimeout: defaultTimeout,
		logger:         logger,
	}
}

// Workdir returns the expanded sandbox path.
func (s *Sandbox) Workdir() string {
	return s.workdir
}

// EnsureWorkdir creates the sandbox directory. Safe to call repeatedly.
func (s *Sandbox) EnsureWorkdir() error {
	if s.workdir == "" {
		return errors.New("sandbox directory is not configured")
	}
	return os.MkdirAll(s.workdir, domain.DirectoryPermissions)
}

// Run executes command once, or only prepares the sandbox when dryRun is set.
func (s *Sandbox) Run(ctx context.Context, command string, timeout time.Duration, dryRun bool) domain.ExecutionOutcome {
	outcome := domain.ExecutionOutcome{Cmd: command, DryRun: dryRun}
	if ctx == nil {
		ctx = context.Background()
	}

	if dryRun {
		if err := s.EnsureWorkdir(); err != nil {
			s.warn("sandbox unavailable during dry run", err)
		}
		outcome.OK = true
		return outcome
	}

	if err := s.EnsureWorkdir(); err != nil {
		outcome.Stderr = fmt.Sprintf("sandbox: %v", err)
		return outcome
	}

	args, err := shellquote.Split(command)
	if err != nil {
		outcome.Stderr = fmt.Sprintf("parse command: %v", err)
		return outcome
	}
	if len(args) == 0 {
		outcome.Stderr = "parse command: empty command"
		return outcome
	}

	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = s.workdir
	cmd.WaitDelay = domain.ProcessWaitDelay
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	outcome.DurationMS = time.Since(start).Milliseconds()
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		outcome.Stderr = appendLine(outcome.Stderr, fmt.Sprintf("timeout: command exceeded %s and was killed", timeout))
	case ctx.Err() != nil:
		outcome.Stderr = appendLine(outcome.Stderr, fmt.Sprintf("cancelled: %v", ctx.Err()))
	case err == nil:
		rc := 0
		outcome.RC = &rc
		outcome.OK = true
	case errors.As(err, &exitErr):
		rc := exitErr.ExitCode()
		outcome.RC = &rc
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		outcome.Stderr = appendLine(outcome.Stderr, fmt.Sprintf("executable not found: %s", args[0]))
	default:
		outcome.Stderr = appendLine(outcome.Stderr, fmt.Sprintf("spawn failed: %v", err))
	}

	if s.logger != nil {
		s.logger.Debug("command finished", map[string]interface{}{
			"ok":          outcome.OK,
			"rc":          outcome.ExitCode(),
			"duration_ms": outcome.DurationMS,
		})
	}
	return outcome
}

func (s *Sandbox) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, map[string]interface{}{"error": err.Error(), "workdir": s.workdir})
	}
}

func appendLine(text, line string) string {
	if text == "" || text[len(text)-1] == '\n' {
		return text + line
	}
	return text + "\n" + line
}

var _ ports.CommandExecutor = (*Sandbox)(nil)
