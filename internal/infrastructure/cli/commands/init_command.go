package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/cligent-go/internal/app"
	configapp "github.com/doeshing/cligent-go/internal/application/config"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/helpers"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/terminal"
)

// ErrSetupCancelled is returned when the user backs out of the wizard.
var ErrSetupCancelled = errors.New(MsgInitCancelled)

// NewInitCommand creates the init command, a wizard that enables one
// provider, stores its key and selects a model.
func NewInitCommand(container *app.Container, prompter *terminal.Prompter) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up a provider, API key and model",
		Long: `Set up cligent interactively.

The wizard writes ~/.cligent/config.yaml (backing up any existing file):
  1. pick a provider (claude, chatgpt, deepseek, ...)
  2. enter its API key, or the environment variable holding it
  3. pick the model new sessions start with

Run 'cligent doctor' afterwards to verify the setup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitWizard(cmd.Context(), cmd.OutOrStdout(), container, prompter, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reconfigure even when a provider is already usable")

	return cmd
}

// runInitWizard runs the configuration wizard
func runInitWizard(ctx context.Context, out io.Writer, container *app.Container, prompter *terminal.Prompter, force bool) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}

	if !force && configapp.RequireUsableProvider(cfg) == nil {
		active, _ := cfg.ActiveSelection()
		proceed, err := prompter.AskYesNo(fmt.Sprintf("cligent is already set up (%s). Reconfigure?", active), false)
		if err != nil || !proceed {
			fmt.Fprintln(out, MsgInitCancelled)
			return nil
		}
	}

	if err := SetupProvider(ctx, out, container, prompter); err != nil {
		if errors.Is(err, ErrSetupCancelled) {
			fmt.Fprintln(out, MsgInitCancelled)
			return nil
		}
		return err
	}

	displayCompletionInstructions(out)
	return nil
}

// SetupProvider walks the user through enabling one provider and saves the
// result. The container is reloaded so the running session can use it.
func SetupProvider(ctx context.Context, out io.Writer, container *app.Container, prompter *terminal.Prompter) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}
	if len(cfg.Providers) == 0 {
		return errors.New("no providers declared in the config file")
	}

	provider, err := chooseProvider(out, prompter, cfg)
	if err != nil {
		return err
	}

	if err := promptForKey(out, prompter, &provider); err != nil {
		return err
	}

	model, err := chooseModel(out, prompter, provider)
	if err != nil {
		return err
	}

	provider.Enabled = true
	for i := range provider.Models {
		if provider.Models[i].ID == model {
			provider.Models[i].Enabled = true
		}
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == provider.ID {
			cfg.Providers[i] = provider
		}
	}
	if err := cfg.SetSelection(domain.Selection{ProviderID: provider.ID, ModelID: model}); err != nil {
		return fmt.Errorf("%w (is the API key set?)", err)
	}

	backup, err := helpers.SaveConfigWithValidation(ctx, container, cfg)
	if err != nil {
		return err
	}
	if backup != "" {
		fmt.Fprintf(out, "Existing config backed up to: %s\n", backup)
	}
	fmt.Fprintf(out, "✓ Using %s/%s\n", provider.ID, model)

	if container.Providers != nil && container.Loop != nil && container.Loop.Display != nil {
		if err := container.Reload(ctx); err != nil {
			return fmt.Errorf("reload configuration: %w", err)
		}
	}
	return nil
}

func chooseProvider(out io.Writer, prompter *terminal.Prompter, cfg domain.Config) (domain.ProviderConfig, error) {
	fmt.Fprintln(out, "\nProviders:")
	for i, provider := range cfg.Providers {
		fmt.Fprintf(out, "  %d. %-10s (%s)\n", i+1, provider.ID, provider.Kind)
	}

	defaultID := cfg.Providers[0].ID
	for {
		answer, err := prompter.AskString("Provider", defaultID)
		if err != nil {
			return domain.ProviderConfig{}, ErrSetupCancelled
		}
		if provider, ok := lookupProvider(cfg, answer); ok {
			return provider, nil
		}
		fmt.Fprintf(out, "Unknown provider %q\n", answer)
	}
}

// lookupProvider accepts a provider id or its 1-based position.
func lookupProvider(cfg domain.Config, answer string) (domain.ProviderConfig, bool) {
	answer = strings.TrimSpace(answer)
	var index int
	if _, err := fmt.Sscanf(answer, "%d", &index); err == nil && index >= 1 && index <= len(cfg.Providers) {
		return cfg.Providers[index-1], true
	}
	return cfg.FindProvider(answer)
}

func promptForKey(out io.Writer, prompter *terminal.Prompter, provider *domain.ProviderConfig) error {
	if provider.APIKeyEnv != "" && os.Getenv(provider.APIKeyEnv) != "" {
		useEnv, err := prompter.AskYesNo(fmt.Sprintf("Use the key in $%s?", provider.APIKeyEnv), true)
		if err != nil {
			return ErrSetupCancelled
		}
		if useEnv {
			provider.APIKey = ""
			return nil
		}
	}

	question := "API key"
	if provider.APIKeyEnv != "" {
		question = fmt.Sprintf("API key (leave empty to read $%s at start-up)", provider.APIKeyEnv)
	}
	key, err := prompter.AskSecret(question)
	if err != nil {
		return ErrSetupCancelled
	}
	if key != "" {
		provider.APIKey = key
		return nil
	}
	if provider.APIKeyEnv == "" && provider.Kind != domain.ProviderKindHTTP {
		return fmt.Errorf("provider %s needs an API key", provider.ID)
	}
	fmt.Fprintf(out, "Remember to export %s before starting cligent.\n", provider.APIKeyEnv)
	return nil
}

func chooseModel(out io.Writer, prompter *terminal.Prompter, provider domain.ProviderConfig) (string, error) {
	if len(provider.Models) == 0 {
		model, err := prompter.AskString("Model id", "")
		if err != nil || model == "" {
			return "", ErrSetupCancelled
		}
		return model, nil
	}

	fmt.Fprintln(out, "Models:")
	for i, model := range provider.Models {
		fmt.Fprintf(out, "  %d. %s\n", i+1, model.ID)
	}
	defaultModel := provider.Models[0].ID
	if enabled := provider.EnabledModels(); len(enabled) > 0 {
		defaultModel = enabled[0].ID
	}
	for {
		answer, err := prompter.AskString("Model", defaultModel)
		if err != nil {
			return "", ErrSetupCancelled
		}
		var index int
		if _, err := fmt.Sscanf(answer, "%d", &index); err == nil && index >= 1 && index <= len(provider.Models) {
			return provider.Models[index-1].ID, nil
		}
		if _, ok := provider.FindModel(answer); ok {
			return answer, nil
		}
		fmt.Fprintf(out, "Unknown model %q (run `cligent providers models %s --save` to fetch more)\n", answer, provider.ID)
	}
}

// displayCompletionInstructions displays instructions after successful initialization
func displayCompletionInstructions(out io.Writer) {
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  cligent doctor        verify the setup")
	fmt.Fprintln(out, "  cligent               start a session")
	fmt.Fprintln(out, "  cligent \"list files\"  start with a first request")
}
