package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/cligent-go/internal/app"
	configapp "github.com/doeshing/cligent-go/internal/application/config"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/helpers"
	configinfra "github.com/doeshing/cligent-go/internal/infrastructure/config"
)

const envKeyEditor = "EDITOR"

// redactedKey replaces literal API keys in printed configuration.
const redactedKey = "********"

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(container *app.Container) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit ~/.cligent/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}

	configCmd.AddCommand(
		newConfigShowCommand(container),
		newConfigPathCommand(container),
		newConfigGetCommand(container),
		newConfigSetCommand(container),
		newConfigEditCommand(container),
		newConfigValidateCommand(container),
		newConfigResetCommand(container),
		newConfigDiffCommand(container),
	)

	return configCmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show full configuration (API keys redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := helpers.GetConfigLoader(container)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), loader.Path())
			return nil
		},
	}
}

// newConfigGetCommand creates the 'config get' subcommand
func newConfigGetCommand(container *app.Container) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific configuration value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return errors.New(ErrKeyRequired)
			}
			return getConfigurationValue(cmd.Context(), cmd.OutOrStdout(), container, key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key path (e.g., session.max_recursion)")
	return cmd
}

// newConfigSetCommand creates the 'config set' subcommand
func newConfigSetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value (value accepts YAML syntax)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.Join(args[1:], " ")
			return setConfigurationValue(cmd.Context(), cmd.OutOrStdout(), container, args[0], value)
		},
	}
}

// newConfigEditCommand creates the 'config edit' subcommand
func newConfigEditCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfigurationInEditor(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigValidateCommand creates the 'config validate' subcommand
func newConfigValidateCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfiguration(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigResetCommand creates the 'config reset' subcommand
func newConfigResetCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults (the old file is backed up)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetConfigurationToDefaults(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newConfigDiffCommand creates the 'config diff' subcommand
func newConfigDiffCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show diff versus default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigurationDiff(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// showConfiguration displays the full configuration in YAML format
func showConfiguration(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(redactKeys(cfg))
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprint(out, string(data))
	return nil
}

// getConfigurationValue retrieves a specific configuration value by key path
func getConfigurationValue(ctx context.Context, out io.Writer, container *app.Container, keyPath string) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}

	cfgMap, err := helpers.ConfigToMap(redactKeys(cfg))
	if err != nil {
		return err
	}

	value, found := helpers.TraverseNestedMap(cfgMap, strings.Split(keyPath, "."))
	if !found {
		return fmt.Errorf("key %s not found in configuration", keyPath)
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	fmt.Fprint(out, string(data))
	return nil
}

// setConfigurationValue updates a configuration value by key path
func setConfigurationValue(ctx context.Context, out io.Writer, container *app.Container, keyPath, value string) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}

	cfgMap, err := helpers.ConfigToMap(cfg)
	if err != nil {
		return err
	}

	if !helpers.SetNestedMapValue(cfgMap, strings.Split(keyPath, "."), helpers.ParseYAMLValue(value)) {
		return fmt.Errorf("unable to set key %s", keyPath)
	}

	updated, err := helpers.MapToConfig(cfgMap)
	if err != nil {
		return err
	}

	if _, err := helpers.SaveConfigWithValidation(ctx, container, updated); err != nil {
		return err
	}
	fmt.Fprintf(out, "Set %s\n", keyPath)
	return nil
}

// editConfigurationInEditor opens the configuration file in the user's editor
// and validates the result.
func editConfigurationInEditor(ctx context.Context, out io.Writer, container *app.Container) error {
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}

	editorCommand := getEditorCommand()
	cmd := exec.CommandContext(ctx, editorCommand, loader.Path())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editorCommand, err)
	}

	return validateConfiguration(ctx, out, container)
}

// validateConfiguration loads and checks the configuration file.
func validateConfiguration(ctx context.Context, out io.Writer, container *app.Container) error {
	cfg, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := configapp.RequireUsableProvider(cfg); err != nil {
		fmt.Fprintf(out, "Warning: %v (run `cligent init`)\n", err)
	}
	fmt.Fprintln(out, MsgConfigurationValid)
	return nil
}

// resetConfigurationToDefaults resets the configuration to default values
func resetConfigurationToDefaults(ctx context.Context, out io.Writer, container *app.Container) error {
	loader, err := helpers.GetConfigLoader(container)
	if err != nil {
		return err
	}

	backup, err := helpers.SaveConfigWithValidation(ctx, container, configinfra.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to reset configuration: %w", err)
	}

	fmt.Fprintf(out, "Configuration reset at %s\n", loader.Path())
	if backup != "" {
		fmt.Fprintf(out, "Previous config backed up to: %s\n", backup)
	}
	return nil
}

// showConfigurationDiff shows the difference between current and default configuration
func showConfigurationDiff(ctx context.Context, out io.Writer, container *app.Container) error {
	currentConfig, err := helpers.LoadConfig(ctx, container)
	if err != nil {
		return err
	}

	diff := cmp.Diff(redactKeys(configinfra.DefaultConfig()), redactKeys(currentConfig))
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}

	fmt.Fprintln(out, diff)
	return nil
}

// getEditorCommand retrieves the editor command from environment or returns default
func getEditorCommand() string {
	if editor := os.Getenv(envKeyEditor); editor != "" {
		return editor
	}
	return DefaultEditorCommand
}

// redactKeys hides literal API keys. Environment variable names are kept.
func redactKeys(cfg domain.Config) domain.Config {
	providers := make([]domain.ProviderConfig, len(cfg.Providers))
	for i, provider := range cfg.Providers {
		if provider.APIKey != "" {
			provider.APIKey = redactedKey
		}
		providers[i] = provider
	}
	cfg.Providers = providers
	return cfg
}
