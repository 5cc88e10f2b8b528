// Package shell runs the external desktop tools (xdotool, wmctrl, dwm-msg,
// xclip, pstree, ps) that wmglue drives.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren that outlive the command.
const waitDelay = 2 * time.Second

// Runner executes external commands. Exec is the real implementation; Fake
// records calls for tests.
type Runner interface {
	// Output runs name with args and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// OutputWithInput is Output with stdin fed from input.
	OutputWithInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error)
	// Run runs name with args and waits for it to exit.
	Run(ctx context.Context, name string, args ...string) error
	// RunWithInput is Run with stdin fed from input and no output capture,
	// for tools like xclip that fork a daemon holding the selection.
	RunWithInput(ctx context.Context, input []byte, name string, args ...string) error
	// Start launches name with args detached and does not wait.
	Start(name string, args ...string) error
	// Shell runs command through sh -c and waits for it.
	Shell(ctx context.Context, command string) error
}

// Exec runs commands with os/exec.
type Exec struct{}

// New returns the os/exec backed Runner.
func New() Exec { return Exec{} }

func (Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return Exec{}.OutputWithInput(ctx, nil, name, args...)
}

func (Exec) OutputWithInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}
	out, err := cmd.Output()
	if err != nil {
		return out, &Error{Cmd: commandLine(name, args), Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return out, nil
}

func (Exec) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// A backgrounded grandchild may keep stderr open after a clean exit.
	if err := cmd.Run(); err != nil && !errors.Is(err, exec.ErrWaitDelay) {
		return &Error{Cmd: commandLine(name, args), Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return nil
}

func (Exec) RunWithInput(ctx context.Context, input []byte, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)
	if err := cmd.Run(); err != nil {
		return &Error{Cmd: commandLine(name, args), Err: err}
	}
	return nil
}

func (Exec) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return &Error{Cmd: commandLine(name, args), Err: err}
	}
	// Reap in the background so detached children don't linger as zombies.
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("detached command exited", "cmd", commandLine(name, args), "err", err)
		}
	}()
	return nil
}

func (e Exec) Shell(ctx context.Context, command string) error {
	return e.Run(ctx, "sh", "-c", command)
}

// Error describes a failed command.
type Error struct {
	Cmd    string
	Err    error
	Stderr string
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v (stderr: %s)", e.Cmd, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
