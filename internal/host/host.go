// Package host describes the machine a run executes on: its OS family, its
// CPU architecture and which external tools it provides.
package host

import (
	"fmt"
	"sort"
	"strings"
)

type OS string

const (
	Linux  OS = "linux"
	Darwin OS = "darwin"
)

// ParseOS maps a raw OS name (uname -s or GOOS) to a supported family.
func ParseOS(raw string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "linux":
		return Linux, nil
	case "darwin":
		return Darwin, nil
	}
	return "", fmt.Errorf("%q is not linux or darwin", raw)
}

type Arch string

const (
	X86_64  Arch = "x86_64"
	AArch64 Arch = "aarch64"
	RISCV64 Arch = "riscv64"
)

// FallbackArch is assumed when the machine identifier is not recognized.
const FallbackArch = X86_64

var archAliases = map[string]Arch{
	"x86_64":  X86_64,
	"amd64":   X86_64,
	"x64":     X86_64,
	"aarch64": AArch64,
	"arm64":   AArch64,
	"riscv64": RISCV64,
}

// NormalizeArch maps a raw machine identifier (uname -m or GOARCH) to its
// canonical value. ok is false when raw was not recognized and
// FallbackArch was returned instead.
func NormalizeArch(raw string) (arch Arch, ok bool) {
	if a, found := archAliases[strings.ToLower(strings.TrimSpace(raw))]; found {
		return a, true
	}
	return FallbackArch, false
}

type ToolStatus int

const (
	Absent ToolStatus = iota
	Present
	WrongIdentity
)

func (s ToolStatus) String() string {
	switch s {
	case Present:
		return "present"
	case WrongIdentity:
		return "wrong-identity"
	default:
		return "absent"
	}
}

// Capabilities is computed once per run and is read-only afterwards: every
// field is set by a constructor and exposed through accessors.
type Capabilities struct {
	os          OS
	arch        Arch
	rawMachine  string
	archAssumed bool
	tools       map[string]ToolStatus
}

// NewCapabilities describes a host whose machine identifier was recognized
// as arch.
func NewCapabilities(os OS, arch Arch, tools map[string]ToolStatus) *Capabilities {
	return NewDetected(os, arch, string(arch), false, tools)
}

// NewDetected records the raw machine identifier alongside arch. assumed
// marks arch as the fallback for an unrecognized identifier. tools is
// copied so later changes to the map are not visible.
func NewDetected(os OS, arch Arch, rawMachine string, assumed bool, tools map[string]ToolStatus) *Capabilities {
	c := &Capabilities{
		os:          os,
		arch:        arch,
		rawMachine:  rawMachine,
		archAssumed: assumed,
		tools:       make(map[string]ToolStatus, len(tools)),
	}
	for name, st := range tools {
		c.tools[name] = st
	}
	return c
}

func (c *Capabilities) OS() OS { return c.os }

func (c *Capabilities) Arch() Arch { return c.arch }

// RawMachine is the identifier the host reported, before normalization.
func (c *Capabilities) RawMachine() string { return c.rawMachine }

// ArchAssumed reports whether Arch is FallbackArch standing in for an
// unrecognized machine.
func (c *Capabilities) ArchAssumed() bool { return c.archAssumed }

// Tool returns the probed status of name; unprobed tools are Absent.
func (c *Capabilities) Tool(name string) ToolStatus {
	return c.tools[name]
}

func (c *Capabilities) Has(name string) bool {
	return c.tools[name] == Present
}

// Native reports whether binaries for arch run directly on this host.
func (c *Capabilities) Native(arch Arch) bool {
	return c.arch == arch
}

// ToolNames lists every probed tool in sorted order.
func (c *Capabilities) ToolNames() []string {
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Capabilities) Equal(other *Capabilities) bool {
	if c.os != other.os || c.arch != other.arch || c.rawMachine != other.rawMachine || c.archAssumed != other.archAssumed {
		return false
	}
	if len(c.tools) != len(other.tools) {
		return false
	}
	for name, st := range c.tools {
		if other.tools[name] != st {
			return false
		}
	}
	return true
}
