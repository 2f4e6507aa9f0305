//go:build !windows

package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

func TestRun_CapturesOutputAndExitCode(t *testing.T) {
	exec := NewLocalExecutor("", nil)

	tests := []struct {
		name       string
		command    string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "stdout", command: "echo hello", wantCode: 0, wantStdout: "hello\n"},
		{name: "stderr", command: "echo oops >&2", wantCode: 0, wantStderr: "oops\n"},
		{name: "non-zero exit", command: "echo partial; exit 3", wantCode: 3, wantStdout: "partial\n"},
		{name: "missing binary", command: "definitely-not-a-command-xyz", wantCode: 127},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := exec.Run(context.Background(), tt.command, ports.ExecOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, result.ExitCode)
			if tt.wantStdout != "" {
				assert.Equal(t, tt.wantStdout, result.Stdout)
			}
			if tt.wantStderr != "" {
				assert.Equal(t, tt.wantStderr, result.Stderr)
			}
			assert.False(t, result.Truncated)
		})
	}
}

func TestRun_TruncatesLargeOutput(t *testing.T) {
	exec := NewLocalExecutor("", nil)

	result, err := exec.Run(context.Background(), "head -c 5000 /dev/zero | tr '\\000' a", ports.ExecOptions{MaxOutputBytes: 100})
	require.NoError(t, err)

	assert.True(t, result.Truncated)
	assert.True(t, strings.HasPrefix(result.Stdout, strings.Repeat("a", 100)))
	assert.Contains(t, result.Stdout, "[... output truncated: 4900 bytes omitted]")
}

func TestRun_TimeoutKillsCommand(t *testing.T) {
	exec := NewLocalExecutor("", nil)

	start := time.Now()
	result, err := exec.Run(context.Background(), "sleep 30", ports.ExecOptions{Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, TimeoutExitCode, result.ExitCode)
	assert.Contains(t, result.Stderr, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_CancelKillsProcessGroup(t *testing.T) {
	exec := NewLocalExecutor("", nil)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	// The background sleep inherits the output pipe; only a group kill lets Run return promptly.
	_, err := exec.Run(ctx, "sleep 30 & sleep 30; wait", ports.ExecOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_AlreadyCancelledDoesNotStart(t *testing.T) {
	exec := NewLocalExecutor("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Run(ctx, "echo never", ports.ExecOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_UsesWorkingDir(t *testing.T) {
	exec := NewLocalExecutor("", nil)
	dir := t.TempDir()

	result, err := exec.Run(context.Background(), "pwd", ports.ExecOptions{Dir: dir})
	require.NoError(t, err)

	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(result.Stdout))
	assert.Equal(t, want, got)
}

func TestRun_StartFailureIsExecutionFailure(t *testing.T) {
	exec := NewLocalExecutor("/nonexistent/shell", nil)

	_, err := exec.Run(context.Background(), "echo hi", ports.ExecOptions{})
	var failure *domain.ExecutionFailure
	require.True(t, errors.As(err, &failure), "got %v", err)
	assert.Equal(t, "echo hi", failure.Command)
}
