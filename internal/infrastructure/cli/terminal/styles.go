// Package terminal renders the interaction loop in a terminal: status
// spinner, plans and results, confirmation prompts, user interrupts and the
// history browser.
package terminal

import "github.com/charmbracelet/lipgloss"

// Semantic colors.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#8BC34A"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorDanger  = lipgloss.Color("#E53935")
	colorSuccess = lipgloss.Color("#43A047")
	colorWarning = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
)

// Styles groups the lipgloss styles used by the terminal UI.
type Styles struct {
	Prompt      lipgloss.Style
	Explanation lipgloss.Style
	Command     lipgloss.Style
	Dangerous   lipgloss.Style
	Safe        lipgloss.Style
	Output      lipgloss.Style
	Muted       lipgloss.Style
	Spinner     lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Warning     lipgloss.Style
	Info        lipgloss.Style
	Badge       lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Prompt: lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		Explanation: lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(colorAccent),
		Command:   lipgloss.NewStyle().Bold(true),
		Dangerous: lipgloss.NewStyle().Foreground(colorDanger).Bold(true),
		Safe:      lipgloss.NewStyle().Foreground(colorSuccess),
		Output:    lipgloss.NewStyle().PaddingLeft(4).Foreground(colorMuted),
		Muted:     lipgloss.NewStyle().Foreground(colorMuted),
		Spinner:   lipgloss.NewStyle().Foreground(colorAccent),
		Success:   lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
		Error:     lipgloss.NewStyle().Foreground(colorDanger).Bold(true),
		Warning:   lipgloss.NewStyle().Foreground(colorWarning).Bold(true),
		Info:      lipgloss.NewStyle().Foreground(colorInfo),
		Badge:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(colorInfo).Padding(0, 1).Bold(true),
	}
}
