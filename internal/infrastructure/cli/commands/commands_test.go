package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/cligent-go/internal/app"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/terminal"
)

func newTestContainer(t *testing.T) *app.Container {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLIGENT_CONFIG", "")
	for _, env := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "DEEPSEEK_API_KEY"} {
		t.Setenv(env, "")
	}

	container, err := app.BuildContainer(context.Background(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{}, args...))
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func loadConfig(t *testing.T, container *app.Container) domain.Config {
	t.Helper()
	cfg, err := container.ConfigProvider.Load(context.Background())
	require.NoError(t, err)
	return cfg
}

func seedTurn(t *testing.T, container *app.Container, id, input string, exit int) {
	t.Helper()
	turn := domain.Turn{
		ID:         id,
		Timestamp:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		UserInput:  input,
		Mode:       domain.ModeWork,
		ProviderID: "claude",
		ModelID:    "claude-sonnet-4-20250514",
		Status:     domain.TurnCompleted,
		Summary:    "ran " + input,
		Commands: []domain.CommandRecord{{
			Command:        input,
			Classification: domain.ClassSafe,
			Confirmed:      true,
			ExitCode:       domain.IntPtr(exit),
		}},
	}
	if exit != 0 {
		turn.Status = domain.TurnFailed
	}
	require.NoError(t, container.HistoryStore.Append(context.Background(), turn))
}

func TestConfigGetAndSet(t *testing.T) {
	container := newTestContainer(t)

	out, err := execute(t, NewConfigCommand(container), "get", "--key", "session.max_recursion")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)

	out, err = execute(t, NewConfigCommand(container), "set", "session.max_recursion", "3")
	require.NoError(t, err)
	assert.Equal(t, "Set session.max_recursion\n", out)
	assert.Equal(t, 3, loadConfig(t, container).Session.MaxRecursion)

	backups, err := filepath.Glob(container.ConfigLoader.Path() + ".*.bak")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	container := newTestContainer(t)

	_, err := execute(t, NewConfigCommand(container), "set", "history.backend", "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history.backend")
	assert.Equal(t, domain.HistoryBackendJSONL, loadConfig(t, container).History.Backend)
}

func TestConfigGetRequiresKey(t *testing.T) {
	container := newTestContainer(t)
	_, err := execute(t, NewConfigCommand(container), "get")
	assert.EqualError(t, err, ErrKeyRequired)
}

func TestConfigShowRedactsLiteralKeys(t *testing.T) {
	container := newTestContainer(t)

	out, err := execute(t, NewConfigCommand(container), "show")
	require.NoError(t, err)
	assert.Contains(t, out, redactedKey)
	assert.Contains(t, out, "api_key_env: ANTHROPIC_API_KEY")
	assert.NotContains(t, out, "api_key: ollama")
}

func TestConfigDiffAndReset(t *testing.T) {
	container := newTestContainer(t)

	out, err := execute(t, NewConfigCommand(container), "diff")
	require.NoError(t, err)
	assert.Equal(t, MsgNoDifferencesFromDefault+"\n", out)

	_, err = execute(t, NewConfigCommand(container), "set", "session.context_turns", "5")
	require.NoError(t, err)

	out, err = execute(t, NewConfigCommand(container), "diff")
	require.NoError(t, err)
	assert.Contains(t, out, "ContextTurns")

	out, err = execute(t, NewConfigCommand(container), "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Previous config backed up to:")
	assert.Equal(t, domain.DefaultContextTurns, loadConfig(t, container).Session.ContextTurns)
}

func TestConfigValidateWarnsWithoutProvider(t *testing.T) {
	container := newTestContainer(t)

	out, err := execute(t, NewConfigCommand(container), "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "cligent init")
	assert.Contains(t, out, MsgConfigurationValid)
}

func TestProvidersListShowsKeyStatus(t *testing.T) {
	container := newTestContainer(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	out, err := execute(t, NewProvidersCommand(container), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "missing key ($ANTHROPIC_API_KEY)")
	assert.Contains(t, out, "disabled")
	assert.Regexp(t, `deepseek\s+openai\s+deepseek-chat \*\s+8192\s+ready`, out)
}

func TestProvidersUse(t *testing.T) {
	container := newTestContainer(t)

	_, err := execute(t, NewProvidersCommand(container), "use", "deepseek", "deepseek-chat")
	require.Error(t, err, "a provider without a key cannot be selected")

	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	out, err := execute(t, NewProvidersCommand(container), "use", "deepseek", "deepseek-chat")
	require.NoError(t, err)
	assert.Equal(t, "Now using deepseek/deepseek-chat\n", out)
	assert.Equal(t, domain.Selection{ProviderID: "deepseek", ModelID: "deepseek-chat"}, loadConfig(t, container).Selection)
}

func TestGuardrailCheck(t *testing.T) {
	container := newTestContainer(t)

	out, err := execute(t, NewGuardrailCommand(container), "check", "rm", "-rf", "/")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, string(domain.ClassDangerous)+"\n"))
	assert.Contains(t, out, "  - ")

	out, err = execute(t, NewGuardrailCommand(container), "check", "ls", "-la")
	require.NoError(t, err)
	assert.Equal(t, string(domain.ClassSafe)+"\n", out)
}

func TestGuardrailRules(t *testing.T) {
	container := newTestContainer(t)

	out, err := execute(t, NewGuardrailCommand(container), "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "Rules file:")
	assert.Greater(t, strings.Count(out, "\n"), len(container.Guardrail.Rules()))
}

func TestHistoryListViewDelete(t *testing.T) {
	container := newTestContainer(t)

	out, err := execute(t, NewHistoryCommand(container), "list")
	require.NoError(t, err)
	assert.Equal(t, MsgNoHistoryRecorded+"\n", out)

	seedTurn(t, container, "11111111-aaaa", "ls -la", 0)
	seedTurn(t, container, "22222222-bbbb", "make test", 2)

	out, err = execute(t, NewHistoryCommand(container), "list", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "22222222 |")
	assert.Contains(t, out, "ran make test")

	out, err = execute(t, NewHistoryCommand(container), "view", "11111111")
	require.NoError(t, err)
	assert.Contains(t, out, "Input:    ls -la")

	out, err = execute(t, NewHistoryCommand(container), "delete", "22222222")
	require.NoError(t, err)
	assert.Equal(t, "Deleted turn 22222222-bbbb\n", out)

	turns, err := container.HistoryStore.List(context.Background())
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "11111111-aaaa", turns[0].ID)

	_, err = execute(t, NewHistoryCommand(container), "view", "nope")
	assert.ErrorIs(t, err, domain.ErrTurnNotFound)
}

func TestHistoryStatsAndExport(t *testing.T) {
	container := newTestContainer(t)
	seedTurn(t, container, "11111111-aaaa", "git status", 0)
	seedTurn(t, container, "22222222-bbbb", "git status", 0)
	seedTurn(t, container, "33333333-cccc", "make test", 1)

	out, err := execute(t, NewHistoryCommand(container), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Turns: 3")
	assert.Contains(t, out, "Success rate: 66.7%")
	assert.Contains(t, out, "  COMPLETED: 2")
	assert.Contains(t, out, "  FAILED: 1")
	assert.Contains(t, out, "  git status (2)")
	assert.Contains(t, out, "git reflog")

	dest := filepath.Join(t.TempDir(), "turns.jsonl")
	out, err = execute(t, NewHistoryCommand(container), "export", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 turn(s)")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))

	_, err = execute(t, NewHistoryCommand(container), "clear")
	require.NoError(t, err)
	turns, err := container.HistoryStore.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInitWizardStoresKeyAndSelection(t *testing.T) {
	container := newTestContainer(t)
	var out bytes.Buffer
	prompter := terminal.NewPrompter(strings.NewReader("deepseek\nsk-test\n\n"), &out, terminal.DefaultStyles())

	require.NoError(t, runInitWizard(context.Background(), &out, container, prompter, false))

	cfg := loadConfig(t, container)
	assert.Equal(t, domain.Selection{ProviderID: "deepseek", ModelID: "deepseek-chat"}, cfg.Selection)
	provider, ok := cfg.FindProvider("deepseek")
	require.True(t, ok)
	assert.Equal(t, "sk-test", provider.APIKey)
	assert.Contains(t, out.String(), "✓ Using deepseek/deepseek-chat")

	info, err := os.Stat(container.ConfigLoader.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.SecureFilePermissions), info.Mode().Perm())
}

func TestInitWizardAcceptsIndexAndRetriesUnknownModel(t *testing.T) {
	container := newTestContainer(t)
	var out bytes.Buffer
	prompter := terminal.NewPrompter(strings.NewReader("1\nsk-ant\ngpt-5\n2\n"), &out, terminal.DefaultStyles())

	require.NoError(t, runInitWizard(context.Background(), &out, container, prompter, false))

	assert.Contains(t, out.String(), `Unknown model "gpt-5"`)
	assert.Equal(t, domain.Selection{ProviderID: "claude", ModelID: "claude-3-5-haiku-20241022"}, loadConfig(t, container).Selection)
}

func TestInitWizardCancelledWhenAlreadyConfigured(t *testing.T) {
	container := newTestContainer(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	var out bytes.Buffer
	prompter := terminal.NewPrompter(strings.NewReader("n\n"), &out, terminal.DefaultStyles())

	require.NoError(t, runInitWizard(context.Background(), &out, container, prompter, false))
	assert.Contains(t, out.String(), MsgInitCancelled)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cligent version "))
}
