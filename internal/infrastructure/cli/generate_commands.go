package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/gensh/internal/app"
	"github.com/doeshing/gensh/internal/application/generation"
	"github.com/doeshing/gensh/internal/application/validation"
	"github.com/doeshing/gensh/internal/domain"
)

const (
	msgDryRun          = "Dry run: command not executed. Use --execute to run it in the sandbox."
	msgNoExplanation   = "Explanation not available (use --ask or `gensh show` for a full explanation)"
	msgNeedsConfirm    = "command requires confirmation (risk or low confidence); rerun with --confirm"
	msgDangerousRefuse = "refusing to run a dangerous command without --confirm"
)

type runOptions struct {
	confirm     bool
	execute     bool
	dryRun      bool
	interactive bool
	noCache     bool
	provider    string
	timeout     time.Duration
}

func newRunCommand(container *app.Container, ui UI) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <instruction>",
		Short: "Generate a command and run it in the sandbox (dry run by default)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.execute && opts.dryRun {
				return fmt.Errorf("--execute and --dry-run are mutually exclusive")
			}
			return runInstruction(cmd, container, ui, joinArgs(args), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.confirm, "confirm", "y", false, "Authorize commands that need confirmation")
	cmd.Flags().BoolVar(&opts.execute, "execute", false, "Actually run the command (overrides general.dry_run_default)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Never run the command")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Ask before running commands that need confirmation")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the response cache")
	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "", "Override backend.provider")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Override safety.max_timeout_seconds")
	return cmd
}

func newShowCommand(container *app.Container, ui UI) *cobra.Command {
	var (
		provider string
		noCache  bool
		copyCmd  bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "show <instruction>",
		Short: "Generate a command and display it without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := generate(cmd, container, joinArgs(args), provider, noCache)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(decision); err != nil {
					return err
				}
			}
			if !decision.OK {
				if !asJSON {
					printRejection(out, NewRenderer(out), decision)
				}
				return exitf(ExitRejected, "generation not accepted: "+decision.Reason)
			}
			if !asJSON {
				printDecision(out, NewRenderer(out), decision)
			}
			if copyCmd {
				if ui.Clipboard == nil || !ui.Clipboard.Enabled() {
					return fmt.Errorf("clipboard unavailable")
				}
				if err := ui.Clipboard.Copy(decision.Command); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Override backend.provider")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the response cache")
	cmd.Flags().BoolVarP(&copyCmd, "copy", "c", false, "Copy the accepted command to the clipboard")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the decision record as JSON")
	return cmd
}

func newExecCommand(container *app.Container, ui UI) *cobra.Command {
	var (
		confirm     bool
		execute     bool
		interactive bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Classify a command you typed and run it in the sandbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := joinArgs(args)
			out := cmd.OutOrStdout()
			r := NewRenderer(out)

			risk := container.Guardrail.Evaluate(command)
			fmt.Fprintln(out, r.CommandBlock(command))
			fmt.Fprintln(out, r.RiskBlock(risk.Level, 1))
			if len(risk.Reasons) > 0 {
				fmt.Fprintln(out, r.Reasons(risk.Reasons))
			}

			confirmed, err := authorize(ui, risk, command, risk.RequiresConfirmation(), confirm, interactive)
			if err != nil {
				return err
			}
			dryRun := resolveDryRun(container.Config, execute, false)
			return runSandboxed(cmd, container, "", command, risk.Level, dryRun, confirmed, timeout)
		},
	}

	cmd.Flags().BoolVarP(&confirm, "confirm", "y", false, "Authorize commands that need confirmation")
	cmd.Flags().BoolVar(&execute, "execute", false, "Actually run the command (overrides general.dry_run_default)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Ask before running commands that need confirmation")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Override safety.max_timeout_seconds")
	return cmd
}

func newExplainCommand(container *app.Container) *cobra.Command {
	var (
		ask      bool
		provider string
	)

	cmd := &cobra.Command{
		Use:   "explain <text>",
		Short: "Extract a command from raw model text and show its risk",
		Long: "explain parses a command out of raw model text and classifies it locally.\n" +
			"With --ask the backend also describes the command's purpose, main effect and risk.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := joinArgs(args)
			command := strings.TrimSpace(text)
			confidence := domain.HeuristicConfidence
			notes := msgNoExplanation

			if record, ok := container.Parser.ExtractStructured(text); ok {
				command = strings.TrimSpace(record.Command)
				confidence = record.ConfidenceOr(domain.DefaultRecordConfidence)
				if strings.TrimSpace(record.Explanation) != "" {
					notes = record.Explanation
				}
			} else if heuristic, ok := container.Parser.ExtractCommandHeuristic(text); ok {
				command = heuristic
			}

			if ask && command != "" {
				explanation, err := explain(cmd, container, command, provider)
				if err != nil {
					return err
				}
				notes = explanation
			}

			out := cmd.OutOrStdout()
			r := NewRenderer(out)
			risk := container.Guardrail.Evaluate(command)
			fmt.Fprintln(out, r.CommandBlock(command))
			fmt.Fprintln(out, r.RiskBlock(risk.Level, confidence))
			if len(risk.Reasons) > 0 {
				fmt.Fprintln(out, r.Reasons(risk.Reasons))
			}
			fmt.Fprintln(out, r.NotesBlock(notes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&ask, "ask", false, "Ask the backend to explain the command (Purpose / Main Effect / Risk)")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Backend provider for --ask (defaults to backend.provider)")
	return cmd
}

func explain(cmd *cobra.Command, container *app.Container, command, provider string) (string, error) {
	stop := startSpinner(cmd.ErrOrStderr(), "explaining")
	text, err := container.Generator.Explain(cmd.Context(), generation.ExplainRequest{
		Command:  command,
		Provider: provider,
		Config:   container.Config,
	})
	stop()
	if err != nil {
		return "", exitf(ExitFailure, err.Error())
	}
	return text, nil
}

// runInstruction is the generate, gate, execute, record sequence behind `run`.
func runInstruction(cmd *cobra.Command, container *app.Container, ui UI, instruction string, opts runOptions) error {
	decision, err := generate(cmd, container, instruction, opts.provider, opts.noCache)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := NewRenderer(out)
	if !decision.OK {
		printRejection(out, r, decision)
		return exitf(ExitRejected, "rejected: "+decision.Reason)
	}
	printDecision(out, r, decision)

	risk := container.Guardrail.Evaluate(decision.Command)
	confirmed, err := authorize(ui, risk, decision.Command, decision.NeedConfirmation, opts.confirm, opts.interactive)
	if err != nil {
		return err
	}
	dryRun := resolveDryRun(container.Config, opts.execute, opts.dryRun)
	return runSandboxed(cmd, container, instruction, decision.Command, decision.Risk, dryRun, confirmed, opts.timeout)
}

func generate(cmd *cobra.Command, container *app.Container, instruction, provider string, noCache bool) (domain.DecisionRecord, error) {
	stop := startSpinner(cmd.ErrOrStderr(), "generating")
	decision, err := container.Generator.Generate(cmd.Context(), generation.Request{
		Instruction: instruction,
		Provider:    provider,
		Config:      container.Config,
		SkipCache:   noCache,
	})
	stop()
	if err != nil {
		return domain.DecisionRecord{}, exitf(ExitFailure, err.Error())
	}
	return decision, nil
}

// authorize resolves the confirmation gate. The returned flag reports whether
// the user explicitly authorized the command, which the danger gate requires.
func authorize(ui UI, risk domain.RiskAssessment, command string, needConfirmation, confirm, interactive bool) (bool, error) {
	if !needConfirmation || confirm {
		return confirm, nil
	}
	if interactive && ui.Prompter != nil && ui.Prompter.Enabled() {
		reasons := risk.Reasons
		if !risk.RequiresConfirmation() {
			reasons = append(reasons, validation.ReasonLowConfidence)
		}
		ok, err := ui.Prompter.Confirm(risk.Level, command, reasons)
		if err != nil {
			return false, fmt.Errorf("read confirmation: %w", err)
		}
		if ok {
			return false, nil
		}
	}
	return false, exitf(ExitNeedsConfirmation, msgNeedsConfirm)
}

// runSandboxed runs the pre-execution danger check, the sandbox and the history append.
func runSandboxed(cmd *cobra.Command, container *app.Container, instruction, command string, level domain.RiskLevel, dryRun, confirmed bool, timeout time.Duration) error {
	if container.Guardrail.IsDangerous(command) && !confirmed {
		return exitf(ExitDangerous, msgDangerousRefuse)
	}
	if timeout <= 0 {
		timeout = container.Config.GetExecutionTimeout()
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	r := NewRenderer(out)
	outcome := container.Executor.Run(ctx, command, timeout, dryRun)
	if dryRun {
		fmt.Fprintln(out, r.Warning(msgDryRun))
	} else {
		fmt.Fprintln(out, r.OutputBlock(outcome.Stdout, outcome.Stderr))
	}

	recordHistory(ctx, container, instruction, command, level, outcome)

	if !outcome.OK {
		if outcome.RC != nil {
			return exitf(ExitFailure, fmt.Sprintf("command exited with status %d", *outcome.RC))
		}
		return exitf(ExitFailure, "command failed: "+firstLine(outcome.Stderr))
	}
	return nil
}

func recordHistory(ctx context.Context, container *app.Container, instruction, command string, level domain.RiskLevel, outcome domain.ExecutionOutcome) {
	if container.HistoryStore == nil {
		return
	}
	entry := domain.HistoryEntry{
		Instruction: instruction,
		Command:     command,
		Risk:        level,
		Executed:    !outcome.DryRun,
		DryRun:      outcome.DryRun,
		OK:          outcome.OK,
		RC:          outcome.RC,
	}
	if err := container.HistoryStore.Append(ctx, entry); err != nil {
		container.Logger.Warn("history append failed", map[string]interface{}{"error": err.Error()})
	}
}

// resolveDryRun: explicit flags win, then general.dry_run_default.
func resolveDryRun(cfg domain.Config, execute, dryRun bool) bool {
	switch {
	case dryRun:
		return true
	case execute:
		return false
	default:
		return cfg.General.DryRunDefault
	}
}

func printDecision(out io.Writer, r *Renderer, decision domain.DecisionRecord) {
	fmt.Fprintln(out, r.CommandBlock(decision.Command))
	fmt.Fprintln(out, r.RiskBlock(decision.Risk, decision.Confidence))
	if notes := r.NotesBlock(decision.Explanation()); notes != "" {
		fmt.Fprintln(out, notes)
	}
}

func printRejection(out io.Writer, r *Renderer, decision domain.DecisionRecord) {
	fmt.Fprintln(out, r.Warning("Rejected: "+decision.Reason))
	if decision.Command != "" {
		fmt.Fprintln(out, r.CommandBlock(decision.Command))
		fmt.Fprintln(out, r.RiskBlock(decision.Risk, decision.Confidence))
	}
	if strings.TrimSpace(decision.ModelRaw) != "" {
		fmt.Fprintln(out, r.NotesBlock("Model output:\n"+decision.ModelRaw))
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
