package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/cligent-go/internal/domain"
)

type memHistory struct {
	mu      sync.Mutex
	turns   []domain.Turn
	deleted []string
	failOn  string
}

func (h *memHistory) Append(_ context.Context, turn domain.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	return nil
}

func (h *memHistory) List(context.Context) ([]domain.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Turn(nil), h.turns...), nil
}

func (h *memHistory) Delete(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id == h.failOn {
		return errors.New("disk full")
	}
	h.deleted = append(h.deleted, id)
	return nil
}

func (h *memHistory) Clear(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
	return nil
}

func sampleTurn(id, input string, at time.Time) domain.Turn {
	return domain.Turn{
		ID:         id,
		Timestamp:  at,
		UserInput:  input,
		Mode:       domain.ModeWork,
		ProviderID: "claude",
		ModelID:    "claude-sonnet-4-20250514",
		Status:     domain.TurnCompleted,
		Summary:    "listed files",
		Commands: []domain.CommandRecord{{
			Command:        "ls -la",
			Classification: domain.ClassSafe,
			ExitCode:       domain.IntPtr(0),
			Stdout:         "total 0\n",
		}},
	}
}

func TestPrompterReadLine(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("first\r\nlast"), &out, DefaultStyles())

	line, err := p.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = p.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = p.ReadLine("> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, p.Interactive())
}

func TestPrompterConfirmLineMode(t *testing.T) {
	record := domain.CommandRecord{Command: "rm -rf build", Reasons: []string{"recursive delete"}}
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"full word", "YES\n", true},
		{"no", "n\n", false},
		{"blank", "\n", false},
		{"end of input", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out, DefaultStyles())
			got, err := p.Confirm(record, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "rm -rf build")
			assert.Contains(t, out.String(), "recursive delete")
		})
	}
}

func TestPrompterAskHelpers(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\nno\n\ncustom\nsk-123\n"), &out, DefaultStyles())

	yes, err := p.AskYesNo("Continue?", true)
	require.NoError(t, err)
	assert.True(t, yes)

	yes, err = p.AskYesNo("Continue?", true)
	require.NoError(t, err)
	assert.False(t, yes)

	value, err := p.AskString("Model", "deepseek-chat")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", value)

	value, err = p.AskString("Model", "deepseek-chat")
	require.NoError(t, err)
	assert.Equal(t, "custom", value)

	secret, err := p.AskSecret("API key")
	require.NoError(t, err)
	assert.Equal(t, "sk-123", secret)
	assert.Contains(t, out.String(), "[Y/n]")
}

func TestRendererPlanAndResult(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, DefaultStyles(), 0)

	r.Plan("Clean the build directory.", []domain.CommandRecord{
		{Command: "ls build", Classification: domain.ClassSafe},
		{Command: "rm -rf build", Classification: domain.ClassDangerous, Reasons: []string{"recursive delete"}},
	})
	r.Result(domain.CommandRecord{Command: "rm -rf build"})
	r.Result(domain.CommandRecord{Command: "false", ExitCode: domain.IntPtr(1), Stderr: "boom\n"})

	text := out.String()
	assert.Contains(t, text, "Clean the build directory.")
	assert.Contains(t, text, "[SAFE]")
	assert.Contains(t, text, "[DANGEROUS]")
	assert.Contains(t, text, "- recursive delete")
	assert.Contains(t, text, "skipped")
	assert.Contains(t, text, "exit 1")
	assert.Contains(t, text, "boom")
}

func TestRendererCapsOutput(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, DefaultStyles(), 0)
	lines := make([]string, maxShownOutputLines+5)
	for i := range lines {
		lines[i] = "line"
	}
	r.Result(domain.CommandRecord{Command: "seq 25", ExitCode: domain.IntPtr(0), Stdout: strings.Join(lines, "\n")})
	assert.Contains(t, out.String(), "... 5 more line(s)")
}

func TestRendererTurnFooter(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, DefaultStyles(), 0)
	turn := sampleTurn("t1", "list files", time.Now())
	turn.Depth = 2
	r.Turn(turn)
	assert.Contains(t, out.String(), "COMPLETED · 1 ran · 2 fix attempt(s)")
}

func TestSpinnerFrames(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out, DefaultStyles().Spinner)

	s.Clear()
	assert.Empty(t, out.String())

	s.Frame("Thinking")
	s.Frame("Thinking")
	assert.True(t, s.Visible())
	assert.Contains(t, out.String(), spinnerFrames[0])
	assert.Contains(t, out.String(), spinnerFrames[1])

	s.Clear()
	assert.False(t, s.Visible())
}

func TestTerminalInterruptOnlyWhileBusy(t *testing.T) {
	var out bytes.Buffer
	term := New(strings.NewReader(""), &out)

	term.Interrupt()
	select {
	case <-term.Interrupts():
		t.Fatal("idle interrupt must not be delivered")
	default:
	}
	assert.Contains(t, out.String(), "/quit")

	term.SetState(domain.StateAwaitingAI)
	term.Interrupt()
	term.Interrupt()
	select {
	case <-term.Interrupts():
	default:
		t.Fatal("expected an interrupt")
	}
	select {
	case <-term.Interrupts():
		t.Fatal("interrupts must not queue up")
	default:
	}
}

func TestTerminalConfirmHonoursCancelledContext(t *testing.T) {
	term := New(strings.NewReader("y\n"), io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := term.Confirm(ctx, domain.CommandRecord{Command: "sudo reboot"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerminalConfirmEndsOnInterrupt(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	term := New(reader, io.Discard)
	term.SetState(domain.StateAwaitingConfirmation)

	result := make(chan error, 1)
	go func() {
		_, err := term.Confirm(context.Background(), domain.CommandRecord{Command: "sudo reboot"})
		result <- err
	}()
	term.Interrupt()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, domain.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation kept waiting after an interrupt")
	}

	// The line typed after the cancel goes to the next reader.
	go func() { _, _ = io.WriteString(writer, "next request\n") }()
	term.SetState(domain.StateIdle)
	line, err := term.ReadInput(domain.ModeWork)
	require.NoError(t, err)
	assert.Equal(t, "next request", line)
}

func TestTerminalConfirmEndsOnContextCancel(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()
	term := New(reader, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := term.Confirm(ctx, domain.CommandRecord{Command: "sudo reboot"})
		result <- err
	}()
	cancel()

	select {
	case err := <-result:
		assert.True(t, domain.IsCancellation(err))
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation kept waiting after cancel")
	}
}

func TestHistoryModelOrdersMostRecentFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	turns := []domain.Turn{
		sampleTurn("old", "first", base),
		sampleTurn("new", "second", base.Add(time.Minute)),
	}
	m := NewHistoryModel(context.Background(), &memHistory{}, turns)

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "new", selected.ID)
	assert.Contains(t, m.View(), "second")
	assert.Contains(t, m.View(), "2 turn(s)")
}

func TestHistoryModelDelete(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	history := &memHistory{}
	m := NewHistoryModel(context.Background(), history, []domain.Turn{
		sampleTurn("old", "first", base),
		sampleTurn("new", "second", base.Add(time.Minute)),
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, []string{"new"}, history.deleted)

	updated, cmd = updated.Update(msg)
	assert.Nil(t, cmd)
	model := updated.(HistoryModel)
	require.Len(t, model.Turns(), 1)
	assert.Equal(t, "old", model.Turns()[0].ID)
	assert.Contains(t, model.View(), "deleted new")
}

func TestHistoryModelDeleteFailureKeepsRow(t *testing.T) {
	history := &memHistory{failOn: "only"}
	m := NewHistoryModel(context.Background(), history, []domain.Turn{sampleTurn("only", "ls", time.Now())})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	require.NotNil(t, cmd)
	updated, _ = updated.Update(cmd())

	model := updated.(HistoryModel)
	assert.Len(t, model.Turns(), 1)
	assert.Contains(t, model.View(), "delete failed: disk full")
}

func TestHistoryModelDetailToggle(t *testing.T) {
	m := NewHistoryModel(context.Background(), &memHistory{}, []domain.Turn{sampleTurn("t1", "list files", time.Now())})

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	view := updated.View()
	assert.Contains(t, view, "Input:    list files")
	assert.Contains(t, view, "ls -la")

	updated, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.NotContains(t, updated.View(), "Input:    list files")

	_, cmd = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestBrowseHistoryEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, BrowseHistory(context.Background(), &memHistory{}, strings.NewReader(""), &out))
	assert.Equal(t, msgNoHistory+"\n", out.String())
}
