package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/cligent-go/internal/app"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/helpers"
	"github.com/doeshing/cligent-go/internal/ports"
)

// providerTestTimeout bounds the `providers test` round trip.
const providerTestTimeout = 30 * time.Second

// NewProvidersCommand creates the providers command with all subcommands
func NewProvidersCommand(container *app.Container) *cobra.Command {
	providersCmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"models"},
		Short:   "Manage AI providers and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProviders(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	providersCmd.AddCommand(
		newProvidersListCommand(container),
		newProvidersModelsCommand(container),
		newProvidersUseCommand(container),
		newProvidersTestCommand(container),
	)

	return providersCmd
}

// newProvidersListCommand creates the 'providers list' subcommand
func newProvidersListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured providers and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProviders(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newProvidersModelsCommand creates the 'providers models' subcommand
func newProvidersModelsCommand(container *app.Container) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "models <provider>",
		Short: "Fetch the models a provider offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetchProviderModels(cmd.Context(), cmd.OutOrStdout(), container, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Add newly found models to the config file")
	return cmd
}

// newProvidersUseCommand creates the 'providers use' subcommand
func newProvidersUseCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "use <provider> <model>",
		Short: "Select the provider/model new sessions start with",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			selection := domain.Selection{ProviderID: args[0], ModelID: args[1]}
			return useSelection(cmd.Context(), cmd.OutOrStdout(), container, selection)
		},
	}
}

// newProvidersTestCommand creates the 'providers test' subcommand
func newProvidersTestCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "test [provider] [model]",
		Short: "Send a short request to check connectivity",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return testProvider(cmd.Context(), cmd.OutOrStdout(), container, args)
		},
	}
}

// listProviders prints every provider with its models and key status
func listProviders(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}
	active, _ := cfg.ActiveSelection()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tKIND\tMODEL\tMAX TOKENS\tSTATUS\t")
	for _, provider := range cfg.Providers {
		status := providerStatus(provider)
		if len(provider.Models) == 0 {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t%s\t\n", provider.ID, provider.Kind, status)
			continue
		}
		for _, model := range provider.Models {
			marker := ""
			if active == (domain.Selection{ProviderID: provider.ID, ModelID: model.ID}) {
				marker = " *"
			}
			modelStatus := status
			if !model.Enabled {
				modelStatus = "model disabled"
			}
			fmt.Fprintf(w, "%s\t%s\t%s%s\t%d\t%s\t\n", provider.ID, provider.Kind, model.ID, marker, cfg.MaxTokens(domain.Selection{ProviderID: provider.ID, ModelID: model.ID}), modelStatus)
		}
	}
	return w.Flush()
}

func providerStatus(provider domain.ProviderConfig) string {
	switch {
	case !provider.Enabled:
		return "disabled"
	case provider.ResolveAPIKey() == "":
		if provider.APIKeyEnv != "" {
			return "missing key ($" + provider.APIKeyEnv + ")"
		}
		return "missing key"
	default:
		return "ready"
	}
}

// fetchProviderModels lists remote models and optionally merges them into the config
func fetchProviderModels(ctx context.Context, out io.Writer, container *app.Container, providerID string, save bool) error {
	if container.Providers == nil {
		return errors.New(ErrProvidersUnavailable)
	}

	ids, err := container.Providers.ListModels(ctx, providerID)
	if err != nil {
		return fmt.Errorf("failed to list models for %s: %w", providerID, err)
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	if !save {
		return nil
	}

	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}
	added, err := cfg.MergeModels(providerID, ids)
	if err != nil {
		return err
	}
	if added == 0 {
		fmt.Fprintln(out, "No new models to add.")
		return nil
	}
	if _, err := helpers.SaveConfigWithValidation(ctx, container, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %d model(s) to %s\n", added, providerID)
	return nil
}

// useSelection persists the active provider/model pair
func useSelection(ctx context.Context, out io.Writer, container *app.Container, selection domain.Selection) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}
	if err := cfg.SetSelection(selection); err != nil {
		return err
	}
	if _, err := helpers.SaveConfigWithValidation(ctx, container, cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "Now using %s\n", selection)
	return nil
}

// testProvider sends a one-line request to the given or active selection
func testProvider(ctx context.Context, out io.Writer, container *app.Container, args []string) error {
	if container.Providers == nil {
		return errors.New(ErrProvidersUnavailable)
	}
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}

	selection, err := cfg.ActiveSelection()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		selection.ProviderID = args[0]
		provider, ok := cfg.FindProvider(args[0])
		if !ok {
			return fmt.Errorf("provider %s not found", args[0])
		}
		if len(args) > 1 {
			selection.ModelID = args[1]
		} else if models := provider.EnabledModels(); len(models) > 0 {
			selection.ModelID = models[0].ID
		}
	}

	testCtx, cancel := context.WithTimeout(ctx, providerTestTimeout)
	defer cancel()

	started := time.Now()
	reply, err := container.Providers.Send(testCtx, ports.ProviderRequest{
		Prompt:    "Reply with the single word: ok",
		Selection: selection,
		MaxTokens: domain.SummaryMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("%s test failed: %w", selection, err)
	}
	fmt.Fprintf(out, "%s responded in %s: %q\n", selection, time.Since(started).Round(time.Millisecond), reply)
	return nil
}
