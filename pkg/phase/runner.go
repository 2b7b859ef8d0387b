package phase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/opslab/labseed/pkg/descriptor"
)

// CommandFailedError reports a command that exited non-zero.
type CommandFailedError struct {
	Command    string
	ExitStatus int
	Node       string
}

// Error implements the error interface.
func (e *CommandFailedError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("command failed on %s with status %d: %q", e.Node, e.ExitStatus, e.Command)
	}
	return fmt.Sprintf("command failed with status %d: %q", e.ExitStatus, e.Command)
}

// Runner executes a single rendered command against the target host.
type Runner interface {
	Run(ctx context.Context, cmd descriptor.Command) error
}

// ShellRunner feeds commands to the local shell. String-form commands go
// through `sh -c`; argv-form commands are executed directly. Output is
// streamed line by line into the logger's out/err children as it arrives.
type ShellRunner struct {
	Shell  string // defaults to "sh"
	Node   string // host label used in failure errors
	Logger hclog.Logger
}

// NewShellRunner creates a runner logging to the given logger.
func NewShellRunner(logger hclog.Logger) *ShellRunner {
	return &ShellRunner{Shell: "sh", Logger: logger}
}

// Run executes the command and waits for it to exit. A non-zero exit
// status is returned as a CommandFailedError.
func (r *ShellRunner) Run(ctx context.Context, cmd descriptor.Command) error {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	logger := r.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var execCmd *exec.Cmd
	if cmd.IsArgv() {
		if len(cmd.Argv) == 0 {
			return nil
		}
		execCmd = exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	} else {
		execCmd = exec.CommandContext(ctx, shell, "-c", cmd.Line)
	}

	stdout, err := execCmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := execCmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	logger.Debug("running command", "command", cmd.ShellLine())
	if err := execCmd.Start(); err != nil {
		return fmt.Errorf("failed to start command %q: %w", cmd.ShellLine(), err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		copyToLog(stdout, logger.Named("out"), false)
	}()
	go func() {
		defer wg.Done()
		copyToLog(stderr, logger.Named("err"), true)
	}()
	wg.Wait()

	if err := execCmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &CommandFailedError{
				Command:    cmd.ShellLine(),
				ExitStatus: exitErr.ExitCode(),
				Node:       r.Node,
			}
		}
		return fmt.Errorf("command %q: %w", cmd.ShellLine(), err)
	}
	return nil
}

// copyToLog copies line by line from the stream into the logger.
func copyToLog(r io.Reader, logger hclog.Logger, isStderr bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if isStderr {
			logger.Warn(scanner.Text())
		} else {
			logger.Info(scanner.Text())
		}
	}
}
