package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/gensh/internal/app"
	"github.com/doeshing/gensh/internal/application/generation"
	"github.com/doeshing/gensh/internal/infrastructure/ai"
	"github.com/doeshing/gensh/internal/infrastructure/cli/helpers"
)

// NewModelsCommand creates the models command with all subcommands
func NewModelsCommand(container *app.Container) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect providers and their models",
	}

	modelsCmd.AddCommand(
		newModelsListCommand(container),
		newModelsProvidersCommand(container),
		newModelsUseCommand(container),
	)

	return modelsCmd
}

// newModelsListCommand creates the 'models list' subcommand
func newModelsListCommand(container *app.Container) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the models a provider exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels(cmd.Context(), cmd.OutOrStdout(), container, provider)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider to query (defaults to backend.provider)")
	return cmd
}

// newModelsProvidersCommand creates the 'models providers' subcommand
func newModelsProvidersCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers with their default models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProviders(cmd.OutOrStdout(), container)
		},
	}
}

// newModelsUseCommand creates the 'models use' subcommand
func newModelsUseCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "use <model>",
		Short: "Set backend.model (use \"default\" to clear it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setModel(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// listModels prints the configured and default model, then whatever the provider reports.
// Missing credentials only hide the remote list; other lookup failures are errors.
func listModels(ctx context.Context, out io.Writer, container *app.Container, provider string) error {
	listing, err := container.Generator.ListModels(ctx, provider, container.Config, ai.DefaultModel)

	fmt.Fprintf(out, "Provider: %s\n", listing.Provider)
	fmt.Fprintf(out, "Configured model: %s\n", valueOr(listing.Configured, "(provider default)"))
	fmt.Fprintf(out, "Default model: %s\n", valueOr(listing.Default, "(none)"))
	if listing.Offline {
		fmt.Fprintln(out, MsgOfflineProvider)
	}

	switch {
	case errors.Is(err, ai.ErrMissingCredentials):
		fmt.Fprintf(out, "Available models: unknown (%v)\n", err)
		return nil
	case err != nil:
		return err
	}
	printAvailable(out, listing)
	return nil
}

func printAvailable(out io.Writer, listing generation.ModelListing) {
	if len(listing.Available) == 0 {
		fmt.Fprintln(out, "Available models: none reported")
		return
	}
	fmt.Fprintln(out, "Available models:")
	active := valueOr(listing.Configured, listing.Default)
	for _, model := range listing.Available {
		marker := " "
		if model == active {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %s\n", marker, model)
	}
}

// listProviders prints one line per registered provider
func listProviders(out io.Writer, container *app.Container) error {
	current := container.Config.GetProvider()

	fmt.Fprintf(out, "PROVIDER\tDEFAULT MODEL\tCREDENTIALS\tACTIVE\n")
	for _, name := range container.Registry.Names() {
		credentials := "ok"
		if !ai.HasCredentials(container.Config, name) {
			credentials = "missing"
		}
		active := ""
		if name == current {
			active = "*"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", name, valueOr(ai.DefaultModel(name), "-"), credentials, active)
	}
	return nil
}

// setModel stores backend.model; "default" clears it
func setModel(ctx context.Context, out io.Writer, container *app.Container, model string) error {
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	model = strings.TrimSpace(model)
	if strings.EqualFold(model, "default") {
		model = ""
	}
	if err := cfg.Set("backend.model", model); err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(container, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "backend.model = %s\n", valueOr(model, "(provider default)"))
	return nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
