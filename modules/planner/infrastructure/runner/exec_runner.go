package runner

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/go-faster/errors"
)

// Result captures a finished process.
type Result struct {
	Stdout     string
	Stderr     string
	ReturnCode int
}

// ExecRunner runs planner commands as local subprocesses.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it. A non-zero exit is a Result, not an
// error; errors mean the process could not be run at all.
func (r *ExecRunner) Run(ctx context.Context, cmd []string) (Result, error) {
	if len(cmd) == 0 {
		return Result{}, errors.New("empty command")
	}
	command := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ReturnCode = exitErr.ExitCode()
			return result, nil
		}
		return Result{}, errors.Wrap(err, "run planner command")
	}
	result.ReturnCode = command.ProcessState.ExitCode()
	return result, nil
}
