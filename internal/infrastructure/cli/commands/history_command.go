package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/doeshing/cligent-go/internal/app"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/helpers"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/terminal"
	"github.com/doeshing/cligent-go/internal/infrastructure/history"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect cligent session history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container, DefaultHistoryLimit)
		},
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistoryViewCommand(container),
		newHistoryDeleteCommand(container),
		newHistoryClearCommand(container),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
		newHistoryBrowseCommand(container),
	)

	return historyCmd
}

// newHistoryListCommand creates the 'history list' subcommand
func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent Turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Max entries to show (0 for all)")
	return cmd
}

// newHistoryViewCommand creates the 'history view' subcommand
func newHistoryViewCommand(container *app.Container) *cobra.Command {
	var copyCommands bool

	cmd := &cobra.Command{
		Use:   "view <id>",
		Short: "Show everything recorded for one Turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return viewHistoryEntry(cmd.Context(), cmd.OutOrStdout(), container, args[0], copyCommands)
		},
	}

	cmd.Flags().BoolVarP(&copyCommands, "copy", "c", false, "Copy the Turn's commands to the clipboard")
	return cmd
}

// newHistoryDeleteCommand creates the 'history delete' subcommand
func newHistoryDeleteCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one Turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteHistoryEntry(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newHistoryClearCommand creates the 'history clear' subcommand
func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded Turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearHistory(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newHistoryExportCommand creates the 'history export' subcommand
func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export history to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd.Context(), cmd.OutOrStdout(), container, args[0])
		},
	}
}

// newHistoryStatsCommand creates the 'history stats' subcommand
func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show outcomes, models and top commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistoryStats(cmd.Context(), cmd.OutOrStdout(), container)
		},
	}
}

// newHistoryBrowseCommand creates the 'history browse' subcommand
func newHistoryBrowseCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse and delete Turns in an interactive table",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(container)
			if err != nil {
				return err
			}
			return terminal.BrowseHistory(cmd.Context(), store, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func historyStore(container *app.Container) (history.Store, error) {
	if container.HistoryStore == nil {
		return nil, errors.New(ErrHistoryStoreUnavailable)
	}
	return container.HistoryStore, nil
}

// listHistoryEntries prints the most recent Turns, oldest first.
func listHistoryEntries(ctx context.Context, out io.Writer, container *app.Container, limit int) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	turns, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve history: %w", err)
	}
	if len(turns) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	for _, turn := range domain.RecentTurns(turns, limit) {
		fmt.Fprintf(out, "%s | %s | %-9s | %s | %s\n",
			shortID(turn.ID),
			turn.Timestamp.Local().Format(ListTimestampFormat),
			turn.Status,
			turn.Mode,
			listLabel(turn))
	}
	return nil
}

// viewHistoryEntry prints one Turn in full.
func viewHistoryEntry(ctx context.Context, out io.Writer, container *app.Container, id string, copyCommands bool) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	turn, err := history.Find(ctx, store, id)
	if err != nil {
		return err
	}

	terminal.NewRenderer(out, terminal.DefaultStyles(), 0).TurnDetail(turn)

	if !copyCommands {
		return nil
	}
	script := commandScript(turn)
	if script == "" {
		return fmt.Errorf("turn %s has no commands to copy", shortID(turn.ID))
	}
	if err := terminal.NewClipboard().Copy(ctx, script); err != nil {
		return fmt.Errorf("failed to copy commands: %w", err)
	}
	fmt.Fprintln(out, "✓ Commands copied to clipboard")
	return nil
}

// deleteHistoryEntry removes one Turn, accepting an id prefix.
func deleteHistoryEntry(ctx context.Context, out io.Writer, container *app.Container, id string) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	turn, err := history.Find(ctx, store, id)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, turn.ID); err != nil {
		return fmt.Errorf("failed to delete turn %s: %w", turn.ID, err)
	}
	fmt.Fprintf(out, "Deleted turn %s\n", turn.ID)
	return nil
}

// clearHistory removes every Turn
func clearHistory(ctx context.Context, out io.Writer, container *app.Container) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintf(out, "History cleared (%s)\n", store.Path())
	return nil
}

// exportHistory exports history to a JSONL file
func exportHistory(ctx context.Context, out io.Writer, container *app.Container, path string) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	count, err := history.Export(ctx, store, path)
	if err != nil {
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}
	fmt.Fprintf(out, "Exported %d turn(s) to %s\n", count, path)
	return nil
}

// showHistoryStats displays outcome counts and top commands
func showHistoryStats(ctx context.Context, out io.Writer, container *app.Container) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	turns, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	if len(turns) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	displayHistoryStatistics(out, helpers.AnalyzeTurns(turns), turns)
	return nil
}

// displayHistoryStatistics displays formatted history statistics
func displayHistoryStatistics(out io.Writer, stats helpers.TurnStatistics, turns []domain.Turn) {
	fmt.Fprintf(out, "Turns: %d\nCommands run: %d\nSuccess rate: %.1f%%\nFix attempts: %d\n",
		stats.Turns,
		stats.Executed,
		helpers.CalculateSuccessRate(stats.Successful, stats.Executed),
		stats.FixAttempts)
	fmt.Fprintf(out, "Dangerous commands: %d (%d declined)\n", stats.Dangerous, stats.Declined)

	fmt.Fprintln(out, "Status:")
	for _, status := range []domain.TurnStatus{domain.TurnCompleted, domain.TurnFailed, domain.TurnAborted} {
		if count := stats.ByStatus[status]; count > 0 {
			fmt.Fprintf(out, "  %s: %d\n", status, count)
		}
	}

	fmt.Fprintln(out, "Models:")
	models := make([]string, 0, len(stats.ByModel))
	for model := range stats.ByModel {
		models = append(models, model)
	}
	sort.Strings(models)
	for _, model := range models {
		fmt.Fprintf(out, "  %s: %d\n", model, stats.ByModel[model])
	}

	if top := helpers.CalculateTopCommands(stats.CommandFreq, TopCommandsLimit); len(top) > 0 {
		fmt.Fprintln(out, "Top commands:")
		for _, stat := range top {
			fmt.Fprintf(out, "  %s (%d)\n", stat.Command, stat.Count)
		}
	}

	if hints := helpers.DeriveUndoHints(turns); len(hints) > 0 {
		fmt.Fprintln(out, "Undo hints:")
		for _, hint := range hints {
			fmt.Fprintf(out, "  - %s\n", hint)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func listLabel(turn domain.Turn) string {
	if turn.Summary != "" {
		return turn.Summary
	}
	return turn.UserInput
}

func commandScript(turn domain.Turn) string {
	var script string
	for _, record := range turn.Commands {
		script += record.Command + "\n"
	}
	return script
}
