package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/crossrun/internal/backend"
	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/config"
	"github.com/signalnine/crossrun/internal/docker"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/probe"
	"github.com/signalnine/crossrun/internal/report"
	"github.com/signalnine/crossrun/internal/result"
	"github.com/signalnine/crossrun/internal/runner"
	"github.com/signalnine/crossrun/internal/sample"
)

var (
	ErrNoTarget    = errors.New("no target given (use --target=llvm|aarch64|riscv64|all)")
	ErrTestsFailed = errors.New("some tests failed")
)

// layout holds the absolute paths a run reads from.
type layout struct {
	root        string
	examplesDir string
	answersDir  string
	runtime     string
}

func runConformance(cmd *cobra.Command, opts *options, args []string) error {
	if len(opts.targets) == 0 {
		return ErrNoTarget
	}
	ids, err := backend.ParseTargets(opts.targets)
	if err != nil {
		return err
	}
	if err := report.CheckFormat(opts.format); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	lay, err := resolveLayout(cfg, len(args) == 0)
	if err != nil {
		return err
	}
	samples, err := loadSamples(cfg, lay, args)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true
	if len(samples) == 0 {
		log.Printf("warning: no %s samples found in %s", cfg.SourceExt, lay.examplesDir)
		return nil
	}

	workDir, cleanup, err := prepareWorkDir(cfg.WorkDir)
	if err != nil {
		return err
	}
	defer cleanup()

	mounts := []string{lay.root, workDir, lay.examplesDir, lay.answersDir, filepath.Dir(lay.runtime)}
	for _, s := range samples {
		mounts = append(mounts, filepath.Dir(s.Path))
	}
	ex, finder, closeEx, err := newExecutor(cfg, mountPoints(mounts...))
	if err != nil {
		return err
	}
	defer closeEx()

	ctx := cmd.Context()
	caps, err := probeHost(ctx, cmd.ErrOrStderr(), ex, finder, cfg.Tools, ids)
	if err != nil {
		return err
	}

	env := backend.Env{
		Compiler: cfg.Compiler,
		Runtime:  lay.runtime,
		WorkDir:  workDir,
		Tools:    cfg.Tools,
	}
	out := cmd.OutOrStdout()
	if opts.dryRun {
		return printPlans(out, samples, ids, caps, env)
	}

	r := &runner.Runner{Exec: ex, Caps: caps, Env: env, Verbose: opts.verbose}
	rep, err := runSamples(ctx, out, r, samples, ids)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n--- Results ---")
	if err := report.Write(rep, opts.format, out); err != nil {
		return err
	}
	if !rep.Passed {
		return ErrTestsFailed
	}
	return nil
}

// runSamples runs every sample on every backend in order, printing one
// progress line per sample as soon as all its backends have finished.
func runSamples(ctx context.Context, out io.Writer, r *runner.Runner, samples []sample.Sample, ids []backend.ID) (*report.Report, error) {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	fmt.Fprintf(out, "Backends: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(out, "Samples:  %d\n\n", len(samples))

	agg := report.NewAggregator()
	for _, s := range samples {
		var failed []result.Outcome
		for _, id := range ids {
			o := r.Run(ctx, s, id)
			if err := agg.Record(o); err != nil {
				return nil, err
			}
			if !o.Success {
				failed = append(failed, o)
			}
		}
		if len(failed) == 0 {
			fmt.Fprintf(out, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(out, "✗ %s\n", s.Name)
		for _, o := range failed {
			fmt.Fprintf(out, "  - %s: %s\n", o.Backend, o.Reason.Text())
			if r.Verbose && o.Diagnostic != "" {
				fmt.Fprintf(out, "    %s\n", indent(o.Diagnostic))
			}
		}
	}
	return agg.Finalize(), nil
}

func resolveLayout(cfg *config.Config, needExamples bool) (*layout, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	lay := &layout{root: root}
	for _, p := range []struct {
		dst *string
		src string
	}{
		{&lay.examplesDir, cfg.ExamplesDir},
		{&lay.answersDir, cfg.AnswersDir},
		{&lay.runtime, cfg.Runtime},
	} {
		abs, err := filepath.Abs(p.src)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p.src, err)
		}
		*p.dst = abs
	}

	if err := requireDir(lay.answersDir, "answers directory"); err != nil {
		return nil, err
	}
	if info, err := os.Stat(lay.runtime); err != nil {
		return nil, fmt.Errorf("runtime file: %w", err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("runtime file %s is a directory", lay.runtime)
	}
	if needExamples {
		if err := requireDir(lay.examplesDir, "examples directory"); err != nil {
			return nil, err
		}
	}
	return lay, nil
}

func requireDir(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s %s is not a directory", what, path)
	}
	return nil
}

func loadSamples(cfg *config.Config, lay *layout, args []string) ([]sample.Sample, error) {
	if len(args) == 0 {
		return sample.Discover(lay.examplesDir, cfg.SourceExt, lay.answersDir, cfg.AnswerExt)
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", args[0], err)
	}
	s, err := sample.Open(path, cfg.SourceExt, lay.answersDir, cfg.AnswerExt)
	if err != nil {
		return nil, err
	}
	return []sample.Sample{s}, nil
}

// prepareWorkDir returns the artifact directory. Without an explicit
// directory a fresh temp dir is created and removed by cleanup.
func prepareWorkDir(dir string) (string, func(), error) {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", nil, fmt.Errorf("resolving work dir: %w", err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", nil, fmt.Errorf("creating work dir: %w", err)
		}
		return abs, func() {}, nil
	}
	tmp, err := os.MkdirTemp("", "crossrun-")
	if err != nil {
		return "", nil, fmt.Errorf("creating work dir: %w", err)
	}
	return tmp, func() {
		if err := os.RemoveAll(tmp); err != nil {
			log.Printf("warning: removing %s: %v", tmp, err)
		}
	}, nil
}

// mountPoints returns dirs with every entry already covered by an earlier
// one removed. The first entry is always kept.
func mountPoints(dirs ...string) []string {
	var out []string
	for _, d := range dirs {
		d = filepath.Clean(d)
		covered := false
		for _, m := range out {
			if d == m || strings.HasPrefix(d, m+string(filepath.Separator)) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, d)
		}
	}
	return out
}

// newExecutor picks where tools run. With a docker image, commands and tool
// lookups go through containers; otherwise they run on this machine.
func newExecutor(cfg *config.Config, mounts []string) (command.Executor, probe.Finder, func(), error) {
	if cfg.Docker.Image == "" {
		return command.NewLocal(cfg.Timeout()), probe.PathFinder{}, func() {}, nil
	}
	ex, err := docker.NewExecutor(docker.Options{
		Image:   cfg.Docker.Image,
		Mounts:  mounts,
		User:    cfg.Docker.User,
		Timeout: cfg.Timeout(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return ex, probe.ExecFinder{Exec: ex}, func() { ex.Close() }, nil
}

func probeHost(ctx context.Context, errOut io.Writer, ex command.Executor, finder probe.Finder, tools config.Tools, ids []backend.ID) (*host.Capabilities, error) {
	caps, err := probe.Probe(ctx, probe.Options{Exec: ex, Finder: finder, Tools: tools}, ids)
	if err != nil {
		var perr *probe.Error
		if errors.As(err, &perr) && perr.Hint != "" {
			fmt.Fprintf(errOut, "hint: %s\n", perr.Hint)
		}
		return nil, fmt.Errorf("environment check failed: %w", err)
	}
	return caps, nil
}

func printPlans(w io.Writer, samples []sample.Sample, ids []backend.ID, caps *host.Capabilities, env backend.Env) error {
	for _, s := range samples {
		for _, id := range ids {
			plan, err := backend.Resolve(id, s, caps, env)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s [%s]\n", s.Name, id)
			fmt.Fprintf(w, "  compile: %s\n", plan.Compile)
			for i, c := range plan.Link {
				label := "link"
				if i > 0 {
					label = "link (retry)"
				}
				fmt.Fprintf(w, "  %s: %s\n", label, c)
			}
			fmt.Fprintf(w, "  run: %s\n", plan.Run)
		}
	}
	return nil
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n    ")
}
