package terminal

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner draws one progress frame per Frame call on a single status line.
// It keeps no goroutine of its own; the loop's watch unit drives it. Callers
// serialize access.
type Spinner struct {
	frames  []string
	idx     int
	writer  io.Writer
	style   lipgloss.Style
	visible bool
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer, style lipgloss.Style) *Spinner {
	return &Spinner{
		frames: spinnerFrames,
		writer: w,
		style:  style,
	}
}

// Frame redraws the status line with the next frame and label.
func (s *Spinner) Frame(label string) {
	frame := s.frames[s.idx%len(s.frames)]
	s.idx++
	fmt.Fprintf(s.writer, "\r\033[K%s %s", s.style.Render(frame), label)
	s.visible = true
}

// Clear erases the status line if a frame is showing.
func (s *Spinner) Clear() {
	if !s.visible {
		return
	}
	fmt.Fprint(s.writer, "\r\033[K")
	s.visible = false
}

// Visible reports whether a frame is on screen.
func (s *Spinner) Visible() bool {
	return s.visible
}
