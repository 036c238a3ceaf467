package backend

import (
	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/sample"
)

type aarch64Backend struct{}

func (aarch64Backend) ID() ID { return AArch64 }

func (aarch64Backend) Plan(s sample.Sample, caps *host.Capabilities, env Env) Plan {
	artifact, exe := artifacts(AArch64, s, env.WorkDir, ".s")
	p := Plan{
		Backend:    AArch64,
		Artifact:   artifact,
		Executable: exe,
		Compile:    compileCommand(env, s, "--target=aarch64", artifact),
	}
	if caps.Native(host.AArch64) {
		p.Link = []command.Command{clangLink(env.Tools.CC, nil, artifact, env.Runtime, exe)}
		p.Run = command.New(exe)
		return p
	}

	// Prefer a static binary under qemu; retry dynamically when the cross
	// sysroot has no static libc.
	target := "--target=" + env.Tools.AArch64Target
	p.Link = []command.Command{
		clangLink(env.Tools.CC, []string{target, "-static"}, artifact, env.Runtime, exe),
		clangLink(env.Tools.CC, []string{target}, artifact, env.Runtime, exe),
	}
	p.Run = command.New(env.Tools.QEMUAArch64, "-L", env.Tools.AArch64Sysroot, exe)
	return p
}
