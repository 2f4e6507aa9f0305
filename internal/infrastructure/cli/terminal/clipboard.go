package terminal

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Clipboard copies text with the platform clipboard tool.
type Clipboard struct {
	lookPath func(string) (string, error)
}

// NewClipboard builds the clipboard helper.
func NewClipboard() *Clipboard {
	return &Clipboard{lookPath: exec.LookPath}
}

// Copy copies text to the system clipboard.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	name, args, err := c.tool()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewBufferString(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (c *Clipboard) tool() (string, []string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "pbcopy", nil, nil
	case "windows":
		return "clip", nil, nil
	}
	candidates := []struct {
		name string
		args []string
	}{
		{"wl-copy", nil},
		{"xclip", []string{"-selection", "clipboard"}},
		{"xsel", []string{"--clipboard", "--input"}},
	}
	for _, candidate := range candidates {
		if _, err := c.lookPath(candidate.name); err == nil {
			return candidate.name, candidate.args, nil
		}
	}
	return "", nil, fmt.Errorf("no clipboard tool found (install wl-copy, xclip or xsel)")
}
