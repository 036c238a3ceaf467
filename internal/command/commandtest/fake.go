// Package commandtest provides a scripted command.Executor for tests.
package commandtest

import (
	"context"
	"os"

	"github.com/signalnine/crossrun/internal/command"
)

type Handler func(c command.Command) command.Result

type rule struct {
	match   func(c command.Command) bool
	handler Handler
}

// Executor records every command it is asked to run and answers from the
// first matching rule, or Default when none match.
type Executor struct {
	Calls   []command.Command
	Default command.Result
	rules   []rule
}

func New() *Executor {
	return &Executor{Default: command.Result{ExitCode: 127, Stderr: "command not found"}}
}

// On answers every command whose program name is name.
func (e *Executor) On(name string, h Handler) *Executor {
	return e.OnMatch(func(c command.Command) bool { return c.Name == name }, h)
}

func (e *Executor) OnMatch(match func(c command.Command) bool, h Handler) *Executor {
	e.rules = append(e.rules, rule{match: match, handler: h})
	return e
}

func (e *Executor) Run(_ context.Context, c command.Command) command.Result {
	e.Calls = append(e.Calls, c)
	for _, r := range e.rules {
		if r.match(c) {
			return r.handler(c)
		}
	}
	return e.Default
}

// Named returns the recorded calls to program name.
func (e *Executor) Named(name string) []command.Command {
	var out []command.Command
	for _, c := range e.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func OK(stdout string) Handler {
	return func(command.Command) command.Result {
		return command.Result{Stdout: stdout}
	}
}

func Exit(code int, stderr string) Handler {
	return func(command.Command) command.Result {
		return command.Result{ExitCode: code, Stderr: stderr}
	}
}

// WriteOutput writes content to the path following "-o" and succeeds.
func WriteOutput(content string) Handler {
	return func(c command.Command) command.Result {
		if path := OutputPath(c); path != "" {
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return command.Result{ExitCode: -1, Err: err}
			}
		}
		return command.Result{}
	}
}

// HasArg reports whether c carries arg verbatim.
func HasArg(c command.Command, arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// OutputPath returns the argument following "-o", or "".
func OutputPath(c command.Command) string {
	for i, a := range c.Args {
		if a == "-o" && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
	}
	return ""
}
