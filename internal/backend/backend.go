// Package backend resolves the compile, link and run commands for each
// code-generation backend from the probed host capabilities.
package backend

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/config"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/sample"
)

type ID string

const (
	LLVM    ID = "llvm"
	AArch64 ID = "aarch64"
	RISCV64 ID = "riscv64"
)

// AllTargets selects every backend.
const AllTargets = "all"

var ErrUnknownBackend = errors.New("unknown backend")

// IDs returns every backend in run order.
func IDs() []ID {
	return []ID{LLVM, AArch64, RISCV64}
}

// ParseTargets expands the --target values into backend IDs, keeping the
// first occurrence of each.
func ParseTargets(values []string) ([]ID, error) {
	var ids []ID
	seen := map[ID]bool{}
	for _, v := range values {
		if v == AllTargets {
			return IDs(), nil
		}
		id := ID(v)
		if _, ok := strategies[id]; !ok {
			return nil, fmt.Errorf("%w %q (want one of llvm, aarch64, riscv64, all)", ErrUnknownBackend, v)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Plan is the full command sequence for one sample on one backend.
type Plan struct {
	Backend    ID
	Artifact   string
	Executable string
	Compile    command.Command
	// Link holds the attempts in preference order. Each later attempt runs
	// only if the one before it failed.
	Link []command.Command
	Run  command.Command
}

// Env carries the run-wide inputs every strategy needs.
type Env struct {
	Compiler []string
	Runtime  string
	WorkDir  string
	Tools    config.Tools
}

type Strategy interface {
	ID() ID
	// Plan is deterministic in its inputs.
	Plan(s sample.Sample, caps *host.Capabilities, env Env) Plan
}

var strategies = map[ID]Strategy{
	LLVM:    irBackend{},
	AArch64: aarch64Backend{},
	RISCV64: riscvBackend{},
}

func Lookup(id ID) (Strategy, error) {
	s, ok := strategies[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, id)
	}
	return s, nil
}

// Resolve plans sample s on backend id.
func Resolve(id ID, s sample.Sample, caps *host.Capabilities, env Env) (Plan, error) {
	st, err := Lookup(id)
	if err != nil {
		return Plan{}, err
	}
	return st.Plan(s, caps, env), nil
}

// artifacts names the intermediate file and executable. The backend is part
// of both names so pairs never share files.
func artifacts(id ID, s sample.Sample, workDir, ext string) (artifact, exe string) {
	stem := filepath.Join(workDir, s.Base+"."+string(id))
	return stem + ext, stem + ".out"
}

func compileCommand(env Env, s sample.Sample, flag, artifact string) command.Command {
	args := append([]string{}, env.Compiler[1:]...)
	args = append(args, s.Path, flag, "-o", artifact)
	return command.New(env.Compiler[0], args...)
}

// clangLink is the argument order shared by the clang based links.
func clangLink(cc string, pre []string, artifact, runtime, exe string) command.Command {
	args := append(append([]string{}, pre...), artifact, runtime, "-lm", "-o", exe)
	return command.New(cc, args...)
}

// gccLink puts the output first, matching the cross gcc invocations.
func gccLink(cc string, pre []string, artifact, runtime, exe string) command.Command {
	args := append(append([]string{}, pre...), "-o", exe, artifact, runtime, "-lm")
	return command.New(cc, args...)
}
