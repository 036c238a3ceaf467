package probe_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crossrun/internal/backend"
	"github.com/signalnine/crossrun/internal/command"
	"github.com/signalnine/crossrun/internal/command/commandtest"
	"github.com/signalnine/crossrun/internal/config"
	"github.com/signalnine/crossrun/internal/host"
	"github.com/signalnine/crossrun/internal/probe"
	"github.com/signalnine/crossrun/internal/result"
)

type fakeFinder map[string]bool

func (f fakeFinder) Find(_ context.Context, name string) bool { return f[name] }

func fakeHost(osName, machine string) *commandtest.Executor {
	return commandtest.New().On("uname", func(c command.Command) command.Result {
		if commandtest.HasArg(c, "-s") {
			return command.Result{Stdout: osName + "\n"}
		}
		return command.Result{Stdout: machine + "\n"}
	})
}

func opts(ex command.Executor, present ...string) probe.Options {
	f := fakeFinder{}
	for _, name := range present {
		f[name] = true
	}
	return probe.Options{Exec: ex, Finder: f, Tools: config.Default().Tools}
}

func TestProbeUnsupportedOS(t *testing.T) {
	_, err := probe.Probe(context.Background(), opts(fakeHost("Windows_NT", "x86_64"), "clang"), backend.IDs())
	require.Error(t, err)
	assert.ErrorIs(t, err, probe.ErrUnsupportedOS)
	var perr *probe.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, result.EnvironmentUnsupported, perr.Reason)
}

func TestProbeIRNeedsFrontEnd(t *testing.T) {
	_, err := probe.Probe(context.Background(), opts(fakeHost("Linux", "x86_64")), []backend.ID{backend.LLVM})
	require.ErrorIs(t, err, probe.ErrMissingTool)
	var perr *probe.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "clang", perr.Tool)
	assert.NotEmpty(t, perr.Hint)
	assert.NotContains(t, err.Error(), perr.Hint)

	caps, err := probe.Probe(context.Background(), opts(fakeHost("Linux", "x86_64"), "clang"), []backend.ID{backend.LLVM})
	require.NoError(t, err)
	assert.Equal(t, host.Linux, caps.OS())
	assert.Equal(t, host.X86_64, caps.Arch())
	assert.True(t, caps.Has("clang"))
}

func TestProbeAArch64(t *testing.T) {
	tests := []struct {
		name    string
		machine string
		present []string
		wantErr string
	}{
		{"foreign host needs qemu", "x86_64", []string{"clang"}, "qemu-aarch64"},
		{"foreign host with qemu", "x86_64", []string{"clang", "qemu-aarch64"}, ""},
		{"native arm64 alias", "arm64", []string{"clang"}, ""},
		{"native host needs clang", "aarch64", nil, "clang"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := probe.Probe(context.Background(), opts(fakeHost("Linux", tt.machine), tt.present...), []backend.ID{backend.AArch64})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var perr *probe.Error
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.wantErr, perr.Tool)
		})
	}
}

func TestProbeRISCVLinuxForeign(t *testing.T) {
	ctx := context.Background()
	_, err := probe.Probe(ctx, opts(fakeHost("Linux", "x86_64"), "riscv64-linux-gnu-gcc"), []backend.ID{backend.RISCV64})
	var perr *probe.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "qemu-riscv64", perr.Tool)

	caps, err := probe.Probe(ctx, opts(fakeHost("Linux", "x86_64"), "riscv64-linux-gnu-gcc", "qemu-riscv64"), []backend.ID{backend.RISCV64})
	require.NoError(t, err)
	assert.True(t, caps.Has("qemu-riscv64"))
	assert.False(t, caps.Has("clang"), "riscv64 alone must not require clang")
}

func spikeHost(banner string) *commandtest.Executor {
	return fakeHost("Darwin", "arm64").On("spike", commandtest.Exit(1, banner))
}

func TestProbeSpikeIdentity(t *testing.T) {
	ctx := context.Background()
	targets := []backend.ID{backend.RISCV64}

	_, err := probe.Probe(ctx, opts(spikeHost("usage: spike [options]"), "spike", "riscv64-unknown-elf-gcc"), targets)
	require.ErrorIs(t, err, probe.ErrWrongIdentity)

	ex := spikeHost("Spike RISC-V ISA Simulator 1.1.1-dev\n\nusage: spike [host options] <target program>")
	caps, err := probe.Probe(ctx, opts(ex, "spike", "riscv64-unknown-elf-gcc"), targets)
	require.NoError(t, err)
	assert.Equal(t, host.Darwin, caps.OS())
	assert.Equal(t, host.AArch64, caps.Arch())
	assert.True(t, caps.Has("spike"))
	assert.Len(t, ex.Named("spike"), 1)

	_, err = probe.Probe(ctx, opts(ex, "spike"), targets)
	var perr *probe.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "riscv64-unknown-elf-gcc", perr.Tool)

	_, err = probe.Probe(ctx, opts(ex, "riscv64-unknown-elf-gcc"), targets)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "spike", perr.Tool)
}

func TestProbeRISCVNativeAdvisory(t *testing.T) {
	caps, err := probe.Probe(context.Background(), opts(fakeHost("Linux", "riscv64"), "riscv64-unknown-elf-gcc"), []backend.ID{backend.RISCV64})
	require.NoError(t, err)
	assert.Equal(t, host.Absent, caps.Tool("gcc"))
	assert.Equal(t, host.Present, caps.Tool("riscv64-unknown-elf-gcc"))
	assert.Equal(t, []string{"gcc", "riscv64-linux-gnu-gcc", "riscv64-unknown-elf-gcc"}, caps.ToolNames())
}

func TestProbeUnknownArchFallsBack(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	caps, err := probe.Probe(context.Background(), opts(fakeHost("Linux", "ppc64le"), "clang"), []backend.ID{backend.LLVM})
	require.NoError(t, err)
	assert.Equal(t, host.FallbackArch, caps.Arch())
	assert.True(t, caps.ArchAssumed())
	assert.Equal(t, "ppc64le", caps.RawMachine())
	assert.True(t, strings.Contains(buf.String(), "ppc64le"), "expected warning, got %q", buf.String())
}

func TestProbeIdempotent(t *testing.T) {
	o := opts(fakeHost("Linux", "x86_64"), "clang", "qemu-aarch64", "riscv64-linux-gnu-gcc", "qemu-riscv64")
	first, err := probe.Probe(context.Background(), o, backend.IDs())
	require.NoError(t, err)
	second, err := probe.Probe(context.Background(), o, backend.IDs())
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestDetectHostFallsBackToRuntime(t *testing.T) {
	osName, machine := probe.DetectHost(context.Background(), commandtest.New())
	assert.Equal(t, runtime.GOOS, osName)
	assert.Equal(t, runtime.GOARCH, machine)
}

func TestExecFinder(t *testing.T) {
	ex := commandtest.New().On("sh", func(c command.Command) command.Result {
		if c.Args[len(c.Args)-1] == "clang" {
			return command.Result{Stdout: "/usr/bin/clang\n"}
		}
		return command.Result{ExitCode: 1}
	})
	f := probe.ExecFinder{Exec: ex}
	assert.True(t, f.Find(context.Background(), "clang"))
	assert.False(t, f.Find(context.Background(), "spike"))
	assert.Empty(t, ex.Named("which"))
	require.Len(t, ex.Named("sh"), 2)
	assert.Equal(t, []string{"-c", `command -v "$1"`, "sh", "clang"}, ex.Named("sh")[0].Args)
}

// The lookup must work in images that ship a shell but no which binary.
func TestLookupCommandWithoutWhich(t *testing.T) {
	shPath, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not installed")
	}
	bin := t.TempDir()
	require.NoError(t, os.Symlink(shPath, filepath.Join(bin, "sh")))
	t.Setenv("PATH", bin)

	ex := command.NewLocal(5 * time.Second)
	ctx := context.Background()
	assert.True(t, ex.Run(ctx, probe.LookupCommand("which")).Failed(), "which should be unreachable")
	assert.False(t, ex.Run(ctx, probe.LookupCommand("sh")).Failed())
	assert.True(t, ex.Run(ctx, probe.LookupCommand("crossrun-no-such-tool")).Failed())
	assert.True(t, ex.Run(ctx, probe.LookupCommand("x; exit 0")).Failed(), "name must not run as script")

	f := probe.ExecFinder{Exec: ex}
	assert.True(t, f.Find(ctx, "sh"))
}
