package backend

import (
	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/sample"
)

// irBackend emits LLVM IR text and links it with the host clang. The IR is
// target independent so there is no cross case.
type irBackend struct{}

func (irBackend) ID() ID { return LLVM }

func (irBackend) Plan(s sample.Sample, _ *host.Capabilities, env Env) Plan {
	artifact, exe := artifacts(LLVM, s, env.WorkDir, ".ll")
	return Plan{
		Backend:    LLVM,
		Artifact:   artifact,
		Executable: exe,
		Compile:    compileCommand(env, s, "--emit-llvm", artifact),
		Link:       []command.Command{clangLink(env.Tools.CC, nil, artifact, env.Runtime, exe)},
		Run:        command.New(exe),
	}
}
