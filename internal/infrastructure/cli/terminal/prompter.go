package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/doeshing/cligent-go/internal/domain"
)

// Control bytes seen while reading a single key in raw mode.
const (
	keyCtrlC = 0x03
	keyCtrlD = 0x04
)

// Prompter reads answers from the user. On a terminal, confirmations take a
// single key press; otherwise a line is read.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
	styles Styles
	fd     int

	// Off a terminal, lines are read by one goroutine so a wait can be
	// cancelled without losing the line for the next reader.
	pumpOnce sync.Once
	lines    chan string
	lineErr  error
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer, styles Styles) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{
		reader: bufio.NewReader(in),
		out:    out,
		styles: styles,
		fd:     fd,
	}
}

// Interactive reports whether input comes from a terminal.
func (p *Prompter) Interactive() bool {
	return p.fd >= 0
}

// ReadLine prints prompt and returns the next line without its newline.
// io.EOF is returned only when no input is left.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	return p.readLine(prompt, nil)
}

// readLine is ReadLine that gives up with domain.ErrCancelled once cancel is
// closed. Only reads off a terminal can be cancelled.
func (p *Prompter) readLine(prompt string, cancel <-chan struct{}) (string, error) {
	fmt.Fprint(p.out, prompt)
	if p.Interactive() {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line != "" {
				return strings.TrimRight(line, "\r\n"), nil
			}
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	p.pumpOnce.Do(p.startPump)
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", p.lineErr
		}
		return line, nil
	case <-cancel:
		return "", domain.ErrCancelled
	}
}

func (p *Prompter) startPump() {
	p.lines = make(chan string)
	go func() {
		for {
			line, err := p.reader.ReadString('\n')
			if line != "" && (err == nil || errors.Is(err, io.EOF)) {
				p.lines <- strings.TrimRight(line, "\r\n")
			}
			if err != nil {
				p.lineErr = err
				close(p.lines)
				return
			}
		}
	}()
}

// Confirm asks whether one dangerous command may run. Ctrl+C, or closing
// cancel while a line is awaited, answers with domain.ErrCancelled; end of
// input denies.
func (p *Prompter) Confirm(record domain.CommandRecord, cancel <-chan struct{}) (bool, error) {
	fmt.Fprintf(p.out, "\n%s %s\n", p.styles.Dangerous.Render("⚠ Dangerous command:"), p.styles.Command.Render(record.Command))
	for _, reason := range record.Reasons {
		fmt.Fprintf(p.out, "   %s\n", p.styles.Muted.Render("- "+reason))
	}

	if !p.Interactive() {
		answer, err := p.readLine("Run it? [y/N]: ", cancel)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		return isAffirmativeResponse(strings.ToLower(strings.TrimSpace(answer))), nil
	}

	fmt.Fprint(p.out, "Run it? [y/N] ")
	key, err := p.readKey()
	if err != nil {
		return false, err
	}
	switch key {
	case keyCtrlC:
		fmt.Fprintln(p.out, "^C")
		return false, domain.ErrCancelled
	case 'y', 'Y':
		fmt.Fprintln(p.out, p.styles.Success.Render("yes"))
		return true, nil
	default:
		fmt.Fprintln(p.out, p.styles.Muted.Render("no"))
		return false, nil
	}
}

// AskYesNo prompts the user for a yes/no question
// Returns the default value if no input is given
func (p *Prompter) AskYesNo(question string, defaultValue bool) (bool, error) {
	line, err := p.ReadLine(fmt.Sprintf("%s [%s]: ", question, buildYesNoLabel(defaultValue)))
	if err != nil {
		return defaultValue, err
	}
	line = strings.TrimSpace(strings.ToLower(line))
	if line == "" {
		return defaultValue, nil
	}
	return isAffirmativeResponse(line), nil
}

// AskString prompts the user for a string input with an optional default value
func (p *Prompter) AskString(question, defaultValue string) (string, error) {
	prompt := question
	if defaultValue != "" {
		prompt += fmt.Sprintf(" (default: %s)", defaultValue)
	}
	line, err := p.ReadLine(prompt + ": ")
	if err != nil {
		return defaultValue, err
	}
	if line = strings.TrimSpace(line); line == "" {
		return defaultValue, nil
	}
	return line, nil
}

// AskSecret reads a value without echoing it when input is a terminal.
func (p *Prompter) AskSecret(question string) (string, error) {
	if !p.Interactive() {
		line, err := p.ReadLine(question + ": ")
		return strings.TrimSpace(line), err
	}
	fmt.Fprint(p.out, question+": ")
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// readKey reads one key press with the terminal in raw mode.
func (p *Prompter) readKey() (byte, error) {
	state, err := term.MakeRaw(p.fd)
	if err != nil {
		return 0, fmt.Errorf("enter raw mode: %w", err)
	}
	defer func() { _ = term.Restore(p.fd, state) }()

	key, err := p.reader.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return keyCtrlD, nil
		}
		return 0, err
	}
	return key, nil
}

func buildYesNoLabel(defaultIsYes bool) string {
	if defaultIsYes {
		return "Y/n"
	}
	return "y/N"
}

func isAffirmativeResponse(response string) bool {
	return response == "y" || response == "yes"
}
