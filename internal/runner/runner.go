package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/signalnine/crossrun/internal/backend"
	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/compare"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/result"
	"github.com/signalnine/crossrun/internal/sample"
)

// Runner drives one sample through one backend's compile, link and run
// pipeline. Caps must not be modified once the Runner is in use.
type Runner struct {
	Exec    command.Executor
	Caps    *host.Capabilities
	Env     backend.Env
	Verbose bool
}

type stageError struct {
	reason     result.Reason
	diagnostic string
}

// Run always returns an outcome. Stage failures and panics are converted
// into failed outcomes so one sample can never abort the batch.
func (r *Runner) Run(ctx context.Context, s sample.Sample, id backend.ID) (out result.Outcome) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out = result.Fail(s.Name, string(id), result.InternalError, fmt.Sprintf("panic: %v", p), time.Since(start))
		}
	}()
	plan, err := backend.Resolve(id, s, r.Caps, r.Env)
	if err != nil {
		return result.Fail(s.Name, string(id), result.UnknownBackend, err.Error(), time.Since(start))
	}

	removeArtifacts(plan)
	defer removeArtifacts(plan)

	if serr := r.execute(ctx, s, plan); serr != nil {
		return result.Fail(s.Name, string(id), serr.reason, serr.diagnostic, time.Since(start))
	}
	return result.Pass(s.Name, string(id), time.Since(start))
}

func (r *Runner) execute(ctx context.Context, s sample.Sample, plan backend.Plan) *stageError {
	if res := r.step(ctx, plan.Compile); res.Failed() {
		return &stageError{result.CompileError, res.Diagnostic()}
	}
	if err := checkArtifact(plan.Artifact); err != nil {
		return &stageError{result.CompileError, err.Error()}
	}

	var linkRes command.Result
	linked := false
	for i, c := range plan.Link {
		linkRes = r.step(ctx, c)
		if !linkRes.Failed() {
			linked = true
			break
		}
		if i < len(plan.Link)-1 && r.Verbose {
			log.Printf("link attempt %d for %s/%s failed, retrying: %s", i+1, s.Name, plan.Backend, linkRes.Diagnostic())
		}
	}
	if !linked {
		return &stageError{result.AssembleOrLinkError, linkRes.Diagnostic()}
	}

	runRes := r.step(ctx, plan.Run)
	if runRes.Failed() {
		diag := runRes.Diagnostic()
		if runRes.ExitCode > 0 {
			diag = fmt.Sprintf("exit status %d: %s", runRes.ExitCode, diag)
		}
		return &stageError{result.RunError, diag}
	}

	expected, err := os.ReadFile(s.AnswerPath)
	if err != nil {
		return &stageError{result.MissingAnswerFile, err.Error()}
	}
	if !compare.Equal(runRes.Stdout, string(expected)) {
		return &stageError{result.OutputMismatch, compare.Diff(runRes.Stdout, string(expected))}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, c command.Command) command.Result {
	if r.Verbose {
		log.Printf("exec: %s", c)
	}
	return r.Exec.Run(ctx, c)
}

// checkArtifact rejects a missing or empty compiler output, whatever exit
// code the compiler reported.
func checkArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("compiler produced no artifact: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("compiler produced an empty artifact %s", path)
	}
	return nil
}

func removeArtifacts(plan backend.Plan) {
	for _, f := range []string{plan.Artifact, plan.Executable} {
		if f == "" {
			continue
		}
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("warning: removing %s: %v", f, err)
		}
	}
}
