// Package engine is the process boundary to the external image-processing
// engine: it builds stage command lines, runs them one at a time and
// classifies their exit status.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// CommandExecutor runs one prepared command.
// This abstraction enables unit testing without spawning processes.
type CommandExecutor interface {
	// Stream runs the command to completion, calling onLine for every line
	// of its merged stdout and stderr. It returns the exit status; err is
	// only set when the command could not be run at all.
	Stream(onLine func(string)) (exitStatus int, err error)

	// SetEnv sets the complete environment of the command.
	SetEnv(env []string)
}

// CommandBuilder builds commands.
type CommandBuilder interface {
	BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor
}

// RealCommandExecutor wraps exec.Cmd to implement CommandExecutor.
type RealCommandExecutor struct {
	ctx context.Context
	cmd *exec.Cmd
}

// Stream starts the command with stdout and stderr sharing one pipe and
// scans it line by line until the process exits.
func (r *RealCommandExecutor) Stream(onLine func(string)) (int, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("failed to create output pipe: %w", err)
	}
	r.cmd.Stdout = pw
	r.cmd.Stderr = pw

	if err := r.cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return -1, err
	}
	// Only the child holds the write end now, so the scan ends at its exit.
	pw.Close()

	scanErr := scanLines(pr, onLine)
	pr.Close()
	waitErr := r.cmd.Wait()

	// A stage that exited cleanly keeps its result even if ctx ended since.
	if waitErr == nil {
		if scanErr != nil {
			return 0, fmt.Errorf("failed to read stage output: %w", scanErr)
		}
		return 0, nil
	}
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, waitErr
}

// SetEnv sets the environment for the command.
func (r *RealCommandExecutor) SetEnv(env []string) {
	r.cmd.Env = env
}

func scanLines(rd io.Reader, onLine func(string)) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if onLine != nil {
			onLine(sc.Text())
		}
	}
	if err := sc.Err(); err != nil {
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, rd)
		return err
	}
	return nil
}

// RealCommandBuilder implements CommandBuilder using exec.CommandContext.
type RealCommandBuilder struct{}

// NewRealCommandBuilder creates a new RealCommandBuilder.
func NewRealCommandBuilder() *RealCommandBuilder {
	return &RealCommandBuilder{}
}

// BuildCommand creates a CommandExecutor for the given command and arguments.
func (b *RealCommandBuilder) BuildCommand(ctx context.Context, name string, args ...string) CommandExecutor {
	return &RealCommandExecutor{ctx: ctx, cmd: exec.CommandContext(ctx, name, args...)}
}

// MockCommandExecutor implements CommandExecutor for testing.
type MockCommandExecutor struct {
	// Lines are replayed to onLine by Stream.
	Lines []string
	// ExitStatus is returned from Stream.
	ExitStatus int
	// Err is the error to return from Stream.
	Err error
	// Env holds the environment that was set.
	Env []string
	// RunCalled indicates whether Stream was called.
	RunCalled bool
}

// Stream replays the configured lines and returns the configured status.
func (m *MockCommandExecutor) Stream(onLine func(string)) (int, error) {
	m.RunCalled = true
	if m.Err != nil {
		return -1, m.Err
	}
	for _, l := range m.Lines {
		if onLine != nil {
			onLine(l)
		}
	}
	return m.ExitStatus, nil
}

// SetEnv records the environment.
func (m *MockCommandExecutor) SetEnv(env []string) {
	m.Env = env
}

// MockCommandBuilder implements CommandBuilder for testing.
type MockCommandBuilder struct {
	// Commands records all commands that were built.
	Commands []MockBuiltCommand
	// ExecutorFactory allows creating executors dynamically based on command.
	ExecutorFactory func(name string, args []string) *MockCommandExecutor
}

// MockBuiltCommand records details of a built command.
type MockBuiltCommand struct {
	Name     string
	Args     []string
	Executor *MockCommandExecutor
}

// NewMockCommandBuilder creates a new MockCommandBuilder.
func NewMockCommandBuilder() *MockCommandBuilder {
	return &MockCommandBuilder{}
}

// BuildCommand creates a MockCommandExecutor and records the command details.
func (b *MockCommandBuilder) BuildCommand(_ context.Context, name string, args ...string) CommandExecutor {
	executor := &MockCommandExecutor{}
	if b.ExecutorFactory != nil {
		executor = b.ExecutorFactory(name, args)
	}
	b.Commands = append(b.Commands, MockBuiltCommand{
		Name:     name,
		Args:     append([]string(nil), args...),
		Executor: executor,
	})
	return executor
}

// LastCommand returns the most recently built command, or nil if none.
func (b *MockCommandBuilder) LastCommand() *MockBuiltCommand {
	if len(b.Commands) == 0 {
		return nil
	}
	return &b.Commands[len(b.Commands)-1]
}

// Reset clears all recorded commands.
func (b *MockCommandBuilder) Reset() {
	b.Commands = nil
}
