package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/term"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// stateLabels are shown next to the spinner.
var stateLabels = map[domain.LoopState]string{
	domain.StateAwaitingAI: "Thinking... (Ctrl+C to cancel)",
	domain.StateExecuting:  "Running... (Ctrl+C to cancel)",
}

// Terminal implements ports.Display on stdin/stdout.
type Terminal struct {
	in       io.Reader
	out      io.Writer
	styles   Styles
	renderer *Renderer
	prompter *Prompter
	spinner  *Spinner
	animate  bool

	mu    sync.Mutex
	state domain.LoopState

	interrupts chan struct{}
	signals    chan os.Signal
	done       chan struct{}
	wg         sync.WaitGroup
}

// New builds a Terminal. The spinner only animates when out is a terminal.
func New(in io.Reader, out io.Writer) *Terminal {
	styles := DefaultStyles()
	width := 0
	animate := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		animate = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}
	return &Terminal{
		in:         in,
		out:        out,
		styles:     styles,
		renderer:   NewRenderer(out, styles, width),
		prompter:   NewPrompter(in, out, styles),
		spinner:    NewSpinner(out, styles.Spinner),
		animate:    animate,
		state:      domain.StateIdle,
		interrupts: make(chan struct{}, 1),
	}
}

// Start routes SIGINT to the interrupt channel until Stop is called.
func (t *Terminal) Start() {
	t.signals = make(chan os.Signal, 1)
	t.done = make(chan struct{})
	signal.Notify(t.signals, os.Interrupt)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-t.done:
				return
			case <-t.signals:
				t.Interrupt()
			}
		}
	}()
}

// Stop restores default SIGINT handling.
func (t *Terminal) Stop() {
	if t.signals == nil {
		return
	}
	signal.Stop(t.signals)
	close(t.done)
	t.wg.Wait()
	t.signals = nil
}

// Interrupt delivers one user interrupt. While idle it only prints a hint,
// so a stray Ctrl+C at the prompt does not cancel the next Turn.
func (t *Terminal) Interrupt() {
	t.mu.Lock()
	idle := t.state == domain.StateIdle
	if idle {
		t.spinner.Clear()
		fmt.Fprintln(t.out, t.styles.Muted.Render("\n(type /quit or press Ctrl+D to leave)"))
	}
	t.mu.Unlock()
	if idle {
		return
	}
	select {
	case t.interrupts <- struct{}{}:
	default:
	}
}

// Prompter exposes the line and confirmation reader.
func (t *Terminal) Prompter() *Prompter {
	return t.prompter
}

// Renderer exposes the output formatter.
func (t *Terminal) Renderer() *Renderer {
	return t.renderer
}

// Interactive reports whether input comes from a terminal.
func (t *Terminal) Interactive() bool {
	return t.prompter.Interactive()
}

// ReadInput shows the mode prompt and reads one line.
func (t *Terminal) ReadInput(mode domain.Mode) (string, error) {
	return t.prompter.ReadLine(t.styles.Prompt.Render(fmt.Sprintf("[%s] > ", mode)))
}

// Banner prints the session header.
func (t *Terminal) Banner(mode domain.Mode, selection domain.Selection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer.Banner(mode, selection)
}

// SetState implements ports.Display.
func (t *Terminal) SetState(state domain.LoopState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !state.Busy() {
		t.spinner.Clear()
	}
	t.state = state
}

// Tick implements ports.Display.
func (t *Terminal) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.animate {
		return
	}
	if label, ok := stateLabels[t.state]; ok {
		t.spinner.Frame(label)
	}
}

// ShowPlan implements ports.Display.
func (t *Terminal) ShowPlan(explanation string, records []domain.CommandRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spinner.Clear()
	t.renderer.Plan(explanation, records)
}

// ShowResult implements ports.Display.
func (t *Terminal) ShowResult(record domain.CommandRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spinner.Clear()
	t.renderer.Result(record)
}

// ShowTurn implements ports.Display.
func (t *Terminal) ShowTurn(turn domain.Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spinner.Clear()
	t.renderer.Turn(turn)
}

// ShowMessage implements ports.Display.
func (t *Terminal) ShowMessage(level domain.MessageLevel, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spinner.Clear()
	t.renderer.Message(level, text)
}

// Confirm implements ports.Display. An interrupt or a cancelled ctx ends
// the wait with domain.ErrCancelled.
func (t *Terminal) Confirm(ctx context.Context, record domain.CommandRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t.mu.Lock()
	t.spinner.Clear()
	t.mu.Unlock()

	cancel := make(chan struct{})
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-t.interrupts:
		case <-done:
			return
		}
		close(cancel)
	}()
	return t.prompter.Confirm(record, cancel)
}

// Interrupts implements ports.Display.
func (t *Terminal) Interrupts() <-chan struct{} {
	return t.interrupts
}

// BrowseHistory implements ports.Display.
func (t *Terminal) BrowseHistory(ctx context.Context, history ports.SessionHistory) error {
	t.mu.Lock()
	t.spinner.Clear()
	t.mu.Unlock()
	return BrowseHistory(ctx, history, t.in, t.out)
}

var _ ports.Display = (*Terminal)(nil)
