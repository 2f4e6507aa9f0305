// Package cli wires the cobra command tree and runs the interactive session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/cligent-go/internal/app"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/commands"
	"github.com/doeshing/cligent-go/internal/infrastructure/cli/terminal"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
	In      io.Reader
	Out     io.Writer
}

// NewRootCmd wires the cobra root command. The returned container must be
// closed by the caller.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, *app.Container, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, nil, err
	}

	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	term := terminal.New(in, out)
	container.Loop.Display = term

	root := &cobra.Command{
		Use:   "cligent [request...]",
		Short: "cligent - AI agent for your shell",
		Long: `cligent turns requests into shell commands, runs them with your
confirmation for anything dangerous, and fixes failures automatically.

Without arguments it starts an interactive session; arguments are sent as the
first request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cmd.OutOrStdout(), container, term, strings.Join(args, " "))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	root.AddCommand(
		commands.NewInitCommand(container, term.Prompter()),
		commands.NewConfigCommand(container),
		commands.NewProvidersCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewGuardrailCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root, container, nil
}

// runSession runs the read-submit loop until /quit or end of input.
func runSession(ctx context.Context, out io.Writer, container *app.Container, term *terminal.Terminal, initial string) error {
	loop := container.Loop

	if err := loop.Init(ctx); err != nil {
		if !errors.Is(err, domain.ErrNoProvider) {
			return err
		}
		if err := offerSetup(ctx, out, container, term); err != nil {
			return err
		}
	}

	term.Start()
	defer term.Stop()

	term.Banner(loop.Mode(), loop.Selection())

	if strings.TrimSpace(initial) != "" {
		if quit := handleLine(ctx, container, term, initial); quit {
			return nil
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := term.ReadInput(loop.Mode())
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if quit := handleLine(ctx, container, term, line); quit {
			return nil
		}
	}
}

// handleLine runs one slash command or Turn and reports whether to quit.
// Failures are shown and the session continues.
func handleLine(ctx context.Context, container *app.Container, term *terminal.Terminal, line string) bool {
	loop := container.Loop

	result, err := loop.HandleCommand(ctx, line)
	if err != nil {
		term.ShowMessage(domain.MessageError, err.Error())
	}
	if result.Quit {
		return true
	}
	if result.Handled {
		return false
	}

	if _, err := loop.Submit(ctx, line); err != nil {
		container.Logger.Error("turn not recorded", err, map[string]interface{}{"input": line})
	}
	return false
}

// offerSetup runs the provider wizard when nothing is usable yet.
func offerSetup(ctx context.Context, out io.Writer, container *app.Container, term *terminal.Terminal) error {
	fmt.Fprintf(out, "%v\n", domain.ErrNoProvider)
	if !term.Interactive() {
		return fmt.Errorf("%w: run `cligent init` or set a provider API key", domain.ErrNoProvider)
	}

	setup, err := term.Prompter().AskYesNo("Set up a provider now?", true)
	if err != nil || !setup {
		return fmt.Errorf("%w: run `cligent init` when ready", domain.ErrNoProvider)
	}
	if err := commands.SetupProvider(ctx, out, container, term.Prompter()); err != nil {
		return err
	}
	return container.Loop.Init(ctx)
}
