package backend

import (
	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/config"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/sample"
)

type riscvBackend struct{}

func (riscvBackend) ID() ID { return RISCV64 }

func (riscvBackend) Plan(s sample.Sample, caps *host.Capabilities, env Env) Plan {
	artifact, exe := artifacts(RISCV64, s, env.WorkDir, ".s")
	p := Plan{
		Backend:    RISCV64,
		Artifact:   artifact,
		Executable: exe,
		Compile:    compileCommand(env, s, "--target=riscv64", artifact),
	}
	t := env.Tools

	switch {
	case caps.Native(host.RISCV64):
		p.Link = []command.Command{gccLink(NativeRISCVCompiler(caps, t), nil, artifact, env.Runtime, exe)}
		p.Run = command.New(exe)
	case caps.OS() == host.Darwin:
		// spike+pk loads newlib binaries from the elf toolchain.
		p.Link = []command.Command{gccLink(t.RISCVElfCC, nil, artifact, env.Runtime, exe)}
		p.Run = command.New(t.Spike, t.ProxyKernel, exe)
	default:
		p.Link = []command.Command{gccLink(t.RISCVLinuxCC, []string{"-static"}, artifact, env.Runtime, exe)}
		p.Run = command.New(t.QEMURISCV64, "-L", t.RISCVSysroot, exe)
	}
	return p
}

// NativeRISCVCompiler picks the first present compiler out of the system
// compiler, the linux cross compiler and the elf cross compiler. The system
// compiler is returned when none were found.
func NativeRISCVCompiler(caps *host.Capabilities, t config.Tools) string {
	for _, cc := range []string{t.SystemCC, t.RISCVLinuxCC, t.RISCVElfCC} {
		if caps.Has(cc) {
			return cc
		}
	}
	return t.SystemCC
}
