package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds every pipeline step unless overridden.
const DefaultTimeout = 30 * time.Second

// waitDelay is how long Run waits for the output pipes to close after the
// process was killed. Descendants that inherited the pipes cannot extend
// a step past timeout plus waitDelay.
const waitDelay = 500 * time.Millisecond

// Command is a program plus its ordered argument list. It is never passed
// through a shell.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// New builds a Command from a program name and arguments.
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Argv returns the command as a single slice, program first.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Err      error
	Duration time.Duration
}

// Failed reports a nonzero exit, a timeout or a failure to start.
func (r Result) Failed() bool {
	return r.ExitCode != 0 || r.TimedOut || r.Err != nil
}

// Diagnostic returns the most useful error text the step produced.
func (r Result) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return strings.TrimSpace(r.Stdout)
}

type Executor interface {
	Run(ctx context.Context, cmd Command) Result
}

// Local runs commands as host processes.
type Local struct {
	Timeout time.Duration
}

func NewLocal(timeout time.Duration) *Local {
	return &Local{Timeout: timeout}
}

func (l *Local) Run(ctx context.Context, c Command) Result {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	killGroupOnCancel(cmd)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return TimeoutResult(res, timeout)
	}
	// The process itself exited cleanly; only a leftover descendant kept the
	// pipes open past waitDelay.
	if errors.Is(err, exec.ErrWaitDelay) {
		err = nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = fmt.Errorf("running %s: %w", c.Name, err)
		}
	}
	return res
}

// TimeoutResult marks res as a timed out step.
func TimeoutResult(res Result, timeout time.Duration) Result {
	res.ExitCode = -1
	res.TimedOut = true
	res.Stderr = fmt.Sprintf("timeout after %s", timeout)
	return res
}
