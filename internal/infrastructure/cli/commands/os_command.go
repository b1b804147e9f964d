package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/gensh/internal/app"
	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/infrastructure/cli/helpers"
)

// NewOSCommand creates the os command: show, set and one shortcut per dialect
func NewOSCommand(container *app.Container) *cobra.Command {
	osCmd := &cobra.Command{
		Use:   "os",
		Short: "Show or select the target OS dialect",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := container.ConfigProvider.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OS mode: %s (%s)\n", cfg.GetTargetOS(), cfg.GetTargetOS().DisplayName())
			return nil
		},
	}

	osCmd.AddCommand(&cobra.Command{
		Use:   "set <windows|linux|mac>",
		Short: "Select the target OS dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setTargetOS(cmd, container, args[0])
		},
	})

	for _, target := range domain.SupportedOS {
		target := target
		osCmd.AddCommand(&cobra.Command{
			Use:   string(target),
			Short: fmt.Sprintf("Shortcut for `os set %s`", target),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return setTargetOS(cmd, container, string(target))
			},
		})
	}

	return osCmd
}

func setTargetOS(cmd *cobra.Command, container *app.Container, value string) error {
	cfg, err := container.ConfigProvider.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Set("os", value); err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(container, cfg); err != nil {
		return err
	}
	printOS(cmd.OutOrStdout(), cfg.OS)
	return nil
}

func printOS(out io.Writer, target domain.TargetOS) {
	fmt.Fprintf(out, "OS set to %s (%s)\n", target, target.DisplayName())
}
