// Package executor runs shell commands for the interaction loop.
//
// Each command runs under the configured shell in its own process group.
// Cancelling the context (or hitting the timeout) kills the whole group, and
// WaitDelay bounds how long we wait for grandchildren holding the output
// pipes. Output is captured per stream up to a byte cap.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// TimeoutExitCode is reported when a command is killed for exceeding its timeout.
const TimeoutExitCode = 124

const pipeDrainDelay = 2 * time.Second

// LocalExecutor runs commands on the host shell.
type LocalExecutor struct {
	shell  string
	logger ports.Logger
}

// NewLocalExecutor builds a new executor. An empty shell selects the
// platform default (/bin/sh, or cmd.exe on Windows).
func NewLocalExecutor(shell string, logger ports.Logger) *LocalExecutor {
	if shell == "" {
		shell = defaultShell
	}
	return &LocalExecutor{shell: shell, logger: logger}
}

// Shell returns the interpreter commands are run with.
func (e *LocalExecutor) Shell() string {
	return e.shell
}

// Run implements ports.CommandExecutor. A non-zero exit is reported in the
// result, not as an error. The error is non-nil only when the command could
// not be started (*domain.ExecutionFailure) or ctx was cancelled.
func (e *LocalExecutor) Run(ctx context.Context, command string, opts ports.ExecOptions) (domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExecutionResult{}, err
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	maxOutput := opts.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = domain.DefaultMaxOutputBytes
	}
	stdout := &limitedWriter{max: maxOutput}
	stderr := &limitedWriter{max: maxOutput}

	cmd := exec.CommandContext(runCtx, e.shell, shellArgs(command)...)
	cmd.Dir = opts.Dir
	cmd.Env = os.Environ()
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setupProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = pipeDrainDelay

	start := time.Now()
	err := cmd.Run()
	result := domain.ExecutionResult{
		DurationMS: time.Since(start).Milliseconds(),
	}

	switch {
	case ctx.Err() != nil:
		// The caller cancelled: the group is already gone.
		e.finish(&result, stdout, stderr, -1)
		e.log("command cancelled", command, result)
		return result, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		e.finish(&result, stdout, stderr, TimeoutExitCode)
		result.Stderr = appendLine(result.Stderr, fmt.Sprintf("[command timed out after %s]", opts.Timeout))
		e.log("command timed out", command, result)
		return result, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		e.finish(&result, stdout, stderr, 0)
	case errors.As(err, &exitErr):
		e.finish(&result, stdout, stderr, exitErr.ExitCode())
	case errors.Is(err, exec.ErrWaitDelay):
		// Exited, but a background child kept the pipes open past WaitDelay.
		e.finish(&result, stdout, stderr, cmd.ProcessState.ExitCode())
	default:
		return result, &domain.ExecutionFailure{Command: command, ExitCode: -1, Err: err}
	}

	e.log("command finished", command, result)
	return result, nil
}

func (e *LocalExecutor) finish(result *domain.ExecutionResult, stdout, stderr *limitedWriter, code int) {
	result.ExitCode = code
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.truncated() || stderr.truncated()
}

func (e *LocalExecutor) log(msg, command string, result domain.ExecutionResult) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, map[string]interface{}{
		"command":     command,
		"exit_code":   result.ExitCode,
		"duration_ms": result.DurationMS,
		"truncated":   result.Truncated,
	})
}

func appendLine(text, line string) string {
	if text != "" && text[len(text)-1] != '\n' {
		text += "\n"
	}
	return text + line
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
