// Package probe inspects the host once per run and fails fast when a
// requested backend cannot possibly run.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strings"

	"github.com/signalnine/crossrun/internal/backend"
	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/config"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/result"
)

var (
	ErrUnsupportedOS = errors.New("unsupported operating system")
	ErrMissingTool   = errors.New("required tool not found")
	ErrWrongIdentity = errors.New("tool did not identify as expected")
)

// Error is a fatal environment problem. Hint is installation guidance for
// the user and is not part of the error text.
type Error struct {
	Reason result.Reason
	Tool   string
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	if e.Tool == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Finder reports whether a program is available.
type Finder interface {
	Find(ctx context.Context, name string) bool
}

// PathFinder searches the host PATH.
type PathFinder struct{}

func (PathFinder) Find(_ context.Context, name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ExecFinder asks a POSIX shell through an executor, for hosts that are not
// the local machine. `command -v` is a shell builtin, so images without
// `which` still answer.
type ExecFinder struct {
	Exec command.Executor
}

func (f ExecFinder) Find(ctx context.Context, name string) bool {
	return !f.Exec.Run(ctx, LookupCommand(name)).Failed()
}

// LookupCommand checks for name without interpolating it into the script.
func LookupCommand(name string) command.Command {
	return command.New("sh", "-c", `command -v "$1"`, "sh", name)
}

type Options struct {
	Exec   command.Executor
	Finder Finder
	Tools  config.Tools
}

// DetectHost returns the raw OS name and machine identifier, preferring
// uname and falling back to the Go runtime's view of the local machine.
func DetectHost(ctx context.Context, ex command.Executor) (osName, machine string) {
	osName, machine = runtime.GOOS, runtime.GOARCH
	if res := ex.Run(ctx, command.New("uname", "-s")); !res.Failed() {
		if s := strings.TrimSpace(res.Stdout); s != "" {
			osName = s
		}
	}
	if res := ex.Run(ctx, command.New("uname", "-m")); !res.Failed() {
		if s := strings.TrimSpace(res.Stdout); s != "" {
			machine = s
		}
	}
	return osName, machine
}

// Probe detects the host and checks the tools every requested backend
// needs. It only queries the host; nothing is modified.
func Probe(ctx context.Context, opts Options, targets []backend.ID) (*host.Capabilities, error) {
	rawOS, rawMachine := DetectHost(ctx, opts.Exec)
	osFamily, err := host.ParseOS(rawOS)
	if err != nil {
		return nil, &Error{Reason: result.EnvironmentUnsupported, Err: fmt.Errorf("%w: %v", ErrUnsupportedOS, err)}
	}
	arch, known := host.NormalizeArch(rawMachine)
	if !known {
		log.Printf("warning: unrecognized CPU architecture %q, assuming %s", rawMachine, arch)
	}

	p := &prober{ctx: ctx, opts: opts, tools: map[string]host.ToolStatus{}}
	want := map[backend.ID]bool{}
	for _, id := range targets {
		want[id] = true
	}
	t := opts.Tools

	if want[backend.LLVM] || want[backend.AArch64] {
		if err := p.require(t.CC, hintCC); err != nil {
			return nil, err
		}
	}
	if want[backend.AArch64] && arch != host.AArch64 {
		if err := p.require(t.QEMUAArch64, hintQEMU); err != nil {
			return nil, err
		}
	}
	if want[backend.RISCV64] {
		if err := p.riscv(osFamily, arch); err != nil {
			return nil, err
		}
	}

	return host.NewDetected(osFamily, arch, rawMachine, !known, p.tools), nil
}

type prober struct {
	ctx   context.Context
	opts  Options
	tools map[string]host.ToolStatus
}

func (p *prober) riscv(osFamily host.OS, arch host.Arch) error {
	t := p.opts.Tools
	if arch == host.RISCV64 {
		for _, cc := range []string{t.SystemCC, t.RISCVLinuxCC, t.RISCVElfCC} {
			p.record(cc)
		}
		return nil
	}
	switch osFamily {
	case host.Darwin:
		if err := p.requireIdentity(t.Spike, t.SpikeSignature, hintSpike); err != nil {
			return err
		}
		return p.require(t.RISCVElfCC, hintRISCVElf)
	default:
		if err := p.require(t.RISCVLinuxCC, hintRISCVLinux); err != nil {
			return err
		}
		return p.require(t.QEMURISCV64, hintQEMU)
	}
}

func (p *prober) record(name string) host.ToolStatus {
	if st, ok := p.tools[name]; ok {
		return st
	}
	st := host.Absent
	if p.opts.Finder.Find(p.ctx, name) {
		st = host.Present
	}
	p.tools[name] = st
	return st
}

func (p *prober) require(name, hint string) error {
	if p.record(name) != host.Present {
		return &Error{Reason: result.EnvironmentUnsupported, Tool: name, Hint: hint, Err: ErrMissingTool}
	}
	return nil
}

// requireIdentity checks that name is present and that its help text
// contains signature, so an unrelated program with the same name is
// rejected.
func (p *prober) requireIdentity(name, signature, hint string) error {
	if err := p.require(name, hint); err != nil {
		return err
	}
	res := p.opts.Exec.Run(p.ctx, command.New(name, "--help"))
	// spike prints its banner to stderr and exits nonzero for --help.
	if !strings.Contains(res.Stdout+res.Stderr, signature) {
		p.tools[name] = host.WrongIdentity
		return &Error{
			Reason: result.EnvironmentUnsupported,
			Tool:   name,
			Hint:   hint,
			Err:    fmt.Errorf("%w: output lacks %q", ErrWrongIdentity, signature),
		}
	}
	return nil
}

const (
	hintCC         = "install clang (apt install clang, or brew install llvm)"
	hintQEMU       = "install qemu user-mode emulation (apt install qemu-user)"
	hintRISCVLinux = "install the riscv64 linux cross compiler (apt install gcc-riscv64-linux-gnu)"
	hintRISCVElf   = "install the riscv64 elf toolchain (brew tap riscv-software-src/riscv && brew install riscv-tools)"
	hintSpike      = "install spike and pk (brew tap riscv-software-src/riscv && brew install riscv-isa-sim riscv-pk)"
)
