package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// DefaultTimeout bounds a single analysis run. sbt startup is slow, so
// this is generous.
const DefaultTimeout = 10 * time.Minute

// Output is the captured result of one command invocation.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandError reports a command that ran but exited non-zero.
type CommandError struct {
	Command string
	Output  *Output
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%q exited with code %d", e.Command, e.Output.ExitCode)
}

// CommandRunner runs the analysis command line.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string) (*Output, error)
}

// ShellRunner runs command lines through the platform shell.
type ShellRunner struct {
	// Timeout is the max execution time.
	// Default: DefaultTimeout
	Timeout time.Duration

	// Env is additional environment variables.
	Env map[string]string
}

// NewShellRunner creates a runner with the default timeout.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{
		Timeout: DefaultTimeout,
		Env:     make(map[string]string),
	}
}

// Run executes command in dir and returns its captured output.
// A non-zero exit returns both the output and a *CommandError; a command
// that cannot be started returns a nil output.
func (r *ShellRunner) Run(ctx context.Context, dir, command string) (*Output, error) {
	if command == "" {
		return nil, errors.New("no analysis command configured")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	name, args := shellCommand(command)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.envSlice()...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	output := &Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output.ExitCode = exitErr.ExitCode()
			return output, &CommandError{Command: command, Output: output}
		}
		return nil, fmt.Errorf("failed to execute %q: %w", command, err)
	}

	return output, nil
}

func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}

func (r *ShellRunner) envSlice() []string {
	result := make([]string, 0, len(r.Env))
	for k, v := range r.Env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}
