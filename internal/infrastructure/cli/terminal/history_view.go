package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

const (
	historyTableHeight = 15
	msgNoHistory       = "No history recorded yet."
)

// deletedMsg reports the outcome of a delete issued from the table.
type deletedMsg struct {
	id  string
	err error
}

// HistoryModel is the bubbletea model behind the history browser.
// Rows are most recent first.
type HistoryModel struct {
	ctx     context.Context
	history ports.SessionHistory
	turns   []domain.Turn
	table   table.Model
	styles  Styles
	detail  bool
	status  string
}

// NewHistoryModel builds the browser over turns, which come most-recent-last
// as SessionHistory.List returns them.
func NewHistoryModel(ctx context.Context, history ports.SessionHistory, turns []domain.Turn) HistoryModel {
	reversed := make([]domain.Turn, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		reversed = append(reversed, turns[i])
	}

	styles := DefaultStyles()
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 19},
			{Title: "Status", Width: 10},
			{Title: "Mode", Width: 5},
			{Title: "Model", Width: 28},
			{Title: "Input", Width: 32},
			{Title: "Summary", Width: 32},
		}),
		table.WithFocused(true),
		table.WithHeight(historyTableHeight),
	)
	tableStyles := table.DefaultStyles()
	tableStyles.Header = tableStyles.Header.Bold(true)
	tableStyles.Selected = styles.Badge
	t.SetStyles(tableStyles)

	m := HistoryModel{
		ctx:     ctx,
		history: history,
		turns:   reversed,
		table:   t,
		styles:  styles,
	}
	m.refreshRows()
	return m
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case deletedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("delete failed: %v", msg.err)
			return m, nil
		}
		for i, turn := range m.turns {
			if turn.ID == msg.id {
				m.turns = append(m.turns[:i], m.turns[i+1:]...)
				break
			}
		}
		m.refreshRows()
		m.status = "deleted " + msg.id
		if len(m.turns) == 0 {
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.detail && msg.String() == "esc" {
				m.detail = false
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			m.detail = !m.detail
			return m, nil
		case "d", "delete":
			turn, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, m.deleteTurn(turn.ID)
		}
	}

	if m.detail {
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	var b strings.Builder
	if turn, ok := m.Selected(); ok && m.detail {
		NewRenderer(&b, m.styles, 0).TurnDetail(turn)
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("enter/esc: back · d: delete · q: quit"))
		return b.String()
	}
	b.WriteString(m.table.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.styles.Info.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d turn(s) · ↑/↓: move · enter: details · d: delete · q: quit", len(m.turns))))
	return b.String()
}

// Selected returns the Turn under the cursor.
func (m HistoryModel) Selected() (domain.Turn, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.turns) {
		return domain.Turn{}, false
	}
	return m.turns[idx], true
}

// Turns returns the Turns still listed, most recent first.
func (m HistoryModel) Turns() []domain.Turn {
	return m.turns
}

func (m HistoryModel) deleteTurn(id string) tea.Cmd {
	ctx, history := m.ctx, m.history
	return func() tea.Msg {
		return deletedMsg{id: id, err: history.Delete(ctx, id)}
	}
}

func (m *HistoryModel) refreshRows() {
	rows := make([]table.Row, 0, len(m.turns))
	for _, turn := range m.turns {
		rows = append(rows, table.Row{
			turn.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(turn.Status),
			string(turn.Mode),
			turn.Selection().String(),
			oneLine(turn.UserInput),
			oneLine(turn.Summary),
		})
	}
	m.table.SetRows(rows)
	if cursor := m.table.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// BrowseHistory runs the interactive history table until the user quits.
func BrowseHistory(ctx context.Context, history ports.SessionHistory, in io.Reader, out io.Writer) error {
	if history == nil {
		return fmt.Errorf("history store unavailable")
	}
	turns, err := history.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(turns) == 0 {
		fmt.Fprintln(out, msgNoHistory)
		return nil
	}

	options := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if in != nil {
		options = append(options, tea.WithInput(in))
	}
	if out != nil {
		options = append(options, tea.WithOutput(out))
	}
	program := tea.NewProgram(NewHistoryModel(ctx, history, turns), options...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("history browser: %w", err)
	}
	return nil
}
