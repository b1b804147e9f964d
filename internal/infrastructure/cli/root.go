// Package cli exposes gensh as a cobra command tree.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/gensh/internal/app"
	"github.com/doeshing/gensh/internal/infrastructure/cli/commands"
	"github.com/doeshing/gensh/internal/ports"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
	// In feeds interactive confirmations; stdin when nil.
	In io.Reader
}

// UI bundles the interactive collaborators of the generation commands.
type UI struct {
	Prompter  ports.ConfirmationPrompter
	Clipboard ports.Clipboard
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, app.Options{Verbose: opts.Verbose})
	if err != nil {
		return nil, err
	}
	return newRoot(container, UI{
		Prompter:  NewPrompter(opts.In, nil),
		Clipboard: NewClipboard(),
	}), nil
}

func newRoot(container *app.Container, ui UI) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "gensh [instruction]",
		Short: "gensh - natural language to shell commands",
		Long: "gensh turns an instruction into a single shell command, classifies its risk,\n" +
			"and only runs it inside a sandbox directory when it is safe to do so.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runInstruction(cmd, container, ui, joinArgs(args), runOptions{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (same as GENSH_DEBUG=1)")

	root.AddCommand(
		newRunCommand(container, ui),
		newShowCommand(container, ui),
		newExecCommand(container, ui),
		newExplainCommand(container),
		commands.NewConfigCommand(container),
		commands.NewOSCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewCacheCommand(container),
		commands.NewModelsCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root
}
