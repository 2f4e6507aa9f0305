package terminal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/doeshing/cligent-go/internal/domain"
)

// maxShownOutputLines caps how much of each stream is echoed after a command.
const maxShownOutputLines = 20

// Renderer prints loop output in a friendly format.
type Renderer struct {
	out    io.Writer
	styles Styles
	width  int
}

// NewRenderer builds a renderer. A width of zero disables wrapping.
func NewRenderer(out io.Writer, styles Styles, width int) *Renderer {
	return &Renderer{out: out, styles: styles, width: width}
}

// Banner prints the session header.
func (r *Renderer) Banner(mode domain.Mode, selection domain.Selection) {
	fmt.Fprintf(r.out, "%s %s  %s\n",
		r.styles.Badge.Render("cligent"),
		r.styles.Prompt.Render(string(mode)),
		r.styles.Muted.Render(selection.String()))
	fmt.Fprintln(r.out, r.styles.Muted.Render("Type /help for commands, Ctrl+D to leave."))
}

// Plan prints the explanation and the proposed commands with their verdicts.
func (r *Renderer) Plan(explanation string, records []domain.CommandRecord) {
	if text := strings.TrimSpace(explanation); text != "" {
		style := r.styles.Explanation
		if r.width > 4 {
			style = style.Width(r.width - 2)
		}
		fmt.Fprintln(r.out, style.Render(text))
	}
	for i, record := range records {
		fmt.Fprintf(r.out, "  %d. %s %s\n", i+1, r.verdict(record.Classification), r.styles.Command.Render(record.Command))
		for _, reason := range record.Reasons {
			fmt.Fprintf(r.out, "       %s\n", r.styles.Muted.Render("- "+reason))
		}
	}
}

// Result prints one command outcome.
func (r *Renderer) Result(record domain.CommandRecord) {
	if !record.Ran() {
		fmt.Fprintf(r.out, "%s %s\n", r.styles.Warning.Render("skipped"), record.Command)
		return
	}
	status := r.styles.Success.Render(fmt.Sprintf("exit %d", *record.ExitCode))
	if record.Failed() {
		status = r.styles.Error.Render(fmt.Sprintf("exit %d", *record.ExitCode))
	}
	duration := ""
	if record.DurationMS > 0 {
		duration = r.styles.Muted.Render(" " + (time.Duration(record.DurationMS) * time.Millisecond).String())
	}
	fmt.Fprintf(r.out, "%s %s%s\n", status, record.Command, duration)
	r.stream(record.Stdout)
	r.stream(record.Stderr)
}

// Turn prints the footer line of a finished Turn.
func (r *Renderer) Turn(turn domain.Turn) {
	parts := []string{string(turn.Status)}
	if executed := len(turn.Executed()); executed > 0 {
		parts = append(parts, fmt.Sprintf("%d ran", executed))
	}
	if turn.Depth > 0 {
		parts = append(parts, fmt.Sprintf("%d fix attempt(s)", turn.Depth))
	}
	fmt.Fprintln(r.out, r.styles.Muted.Render(strings.Join(parts, " · ")))
}

// Message prints a leveled message.
func (r *Renderer) Message(level domain.MessageLevel, text string) {
	switch level {
	case domain.MessageError:
		fmt.Fprintf(r.out, "%s %s\n", r.styles.Error.Render("✗"), text)
	case domain.MessageWarn:
		fmt.Fprintf(r.out, "%s %s\n", r.styles.Warning.Render("!"), text)
	case domain.MessageSuccess:
		fmt.Fprintf(r.out, "%s %s\n", r.styles.Success.Render("✓"), text)
	default:
		fmt.Fprintln(r.out, text)
	}
}

// TurnDetail prints everything recorded for a Turn.
func (r *Renderer) TurnDetail(turn domain.Turn) {
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Badge.Render(string(turn.Status)), turn.ID)
	fmt.Fprintf(r.out, "Time:     %s\n", turn.Timestamp.Local().Format(domain.TimestampFormat))
	fmt.Fprintf(r.out, "Mode:     %s\n", turn.Mode)
	fmt.Fprintf(r.out, "Model:    %s\n", turn.Selection())
	fmt.Fprintf(r.out, "Input:    %s\n", turn.UserInput)
	if turn.Summary != "" {
		fmt.Fprintf(r.out, "Summary:  %s\n", turn.Summary)
	}
	if turn.Error != "" {
		fmt.Fprintf(r.out, "Error:    %s\n", r.styles.Error.Render(turn.Error))
	}
	fmt.Fprintln(r.out)
	r.Plan(turn.Explanation, turn.Commands)
	for _, record := range turn.Commands {
		r.Result(record)
	}
	if turn.Answer != "" {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, turn.Answer)
	}
}

func (r *Renderer) verdict(classification domain.Classification) string {
	if classification == domain.ClassDangerous {
		return r.styles.Dangerous.Render("[DANGEROUS]")
	}
	return r.styles.Safe.Render("[SAFE]")
}

func (r *Renderer) stream(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) > maxShownOutputLines {
		omitted := len(lines) - maxShownOutputLines
		lines = append(lines[:maxShownOutputLines], fmt.Sprintf("... %d more line(s)", omitted))
	}
	fmt.Fprintln(r.out, r.styles.Output.Render(strings.Join(lines, "\n")))
}
