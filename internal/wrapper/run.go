package wrapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/psantana5/steward-action/internal/observe"
)

// Spec describes one process to run
type Spec struct {
	Command string
	Args    []string
	// Env is the complete child environment. Nil inherits ours.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// Result is what we know about a finished process
type Result struct {
	PID      int
	ExitCode int
	Duration time.Duration
}

// Success reports a zero exit code
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// gracePeriod is how long a cancelled process group gets before SIGKILL
const gracePeriod = 10 * time.Second

// Run starts the process in its own process group and waits for it. A
// non-zero exit is reported in Result, not as an error; errors mean the
// process could not be started or waited on.
func Run(ctx context.Context, spec Spec) (*Result, error) {
	timing := observe.NewTiming()

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Env = spec.Env

	// Own process group so cancellation reaches the JVMs coursier spawns
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = gracePeriod

	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = spec.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", spec.Command, err)
	}

	pid := cmd.Process.Pid
	err := cmd.Wait()
	timing.Complete()

	result := &Result{PID: pid, Duration: timing.Duration()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("waiting for %s: %w", spec.Command, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}
