package interaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/cligent-go/internal/domain"
)

// HelpText lists the in-loop commands.
const HelpText = `Commands:
  /mode     toggle WORK / ASK mode
  /model    switch to the next enabled provider/model
  /history  browse and delete history entries
  /help     show this help
  /quit     leave cligent
Press Ctrl+C while the agent is busy to cancel the current request.`

// CommandResult reports what HandleCommand did with a line.
type CommandResult struct {
	// Handled is false when the line is an ordinary prompt.
	Handled bool
	Quit    bool
}

// HandleCommand processes in-loop switch commands such as /mode and /model.
func (l *Loop) HandleCommand(ctx context.Context, line string) (CommandResult, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return CommandResult{}, nil
	}
	if !l.initialized {
		if err := l.Init(ctx); err != nil {
			return CommandResult{Handled: true}, err
		}
	}

	name := strings.ToLower(strings.Fields(line)[0])
	switch name {
	case "/mode":
		return CommandResult{Handled: true}, l.toggleMode(ctx)
	case "/model":
		return CommandResult{Handled: true}, l.nextModel(ctx)
	case "/history":
		if err := l.Display.BrowseHistory(ctx, l.History); err != nil {
			return CommandResult{Handled: true}, fmt.Errorf("history viewer: %w", err)
		}
		return CommandResult{Handled: true}, nil
	case "/help", "/?":
		l.Display.ShowMessage(domain.MessageInfo, HelpText)
		return CommandResult{Handled: true}, nil
	case "/quit", "/exit":
		return CommandResult{Handled: true, Quit: true}, nil
	default:
		l.Display.ShowMessage(domain.MessageWarn, fmt.Sprintf("Unknown command %s, try /help", name))
		return CommandResult{Handled: true}, nil
	}
}

func (l *Loop) toggleMode(ctx context.Context) error {
	mode := l.mode.Toggle()
	if err := l.persist(ctx, func(cfg *domain.Config) error {
		cfg.Mode = mode
		return nil
	}); err != nil {
		return err
	}
	l.mode = mode
	l.Display.ShowMessage(domain.MessageInfo, fmt.Sprintf("Mode: %s", mode))
	return nil
}

func (l *Loop) nextModel(ctx context.Context) error {
	next, err := l.cfg.NextSelection(l.selection)
	if err != nil {
		return err
	}
	if next == l.selection {
		l.Display.ShowMessage(domain.MessageInfo, fmt.Sprintf("Model: %s (only one enabled)", next))
		return nil
	}
	if err := l.persist(ctx, func(cfg *domain.Config) error {
		return cfg.SetSelection(next)
	}); err != nil {
		return err
	}
	l.selection = next
	l.Display.ShowMessage(domain.MessageInfo, fmt.Sprintf("Model: %s", next))
	return nil
}

// persist re-reads the config file, applies change and writes it back, so
// edits made outside the loop are kept. Only mode and selection change here.
func (l *Loop) persist(ctx context.Context, change func(*domain.Config) error) error {
	cfg, err := l.Config.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	if err := change(&cfg); err != nil {
		return err
	}
	if err := l.Config.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	l.cfg = cfg
	return nil
}
