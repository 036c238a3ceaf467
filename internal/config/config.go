package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ExamplesDir    string   `yaml:"examples_dir"`
	SourceExt      string   `yaml:"source_ext"`
	AnswersDir     string   `yaml:"answers_dir"`
	AnswerExt      string   `yaml:"answer_ext"`
	Runtime        string   `yaml:"runtime"`
	WorkDir        string   `yaml:"work_dir"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Compiler       []string `yaml:"compiler"`
	Tools          Tools    `yaml:"tools"`
	Docker         Docker   `yaml:"docker"`
}

// Tools names the external programs each backend pipeline may invoke.
type Tools struct {
	CC             string `yaml:"cc"`
	SystemCC       string `yaml:"system_cc"`
	AArch64Target  string `yaml:"aarch64_target"`
	QEMUAArch64    string `yaml:"qemu_aarch64"`
	AArch64Sysroot string `yaml:"aarch64_sysroot"`
	RISCVLinuxCC   string `yaml:"riscv_linux_cc"`
	RISCVElfCC     string `yaml:"riscv_elf_cc"`
	QEMURISCV64    string `yaml:"qemu_riscv64"`
	RISCVSysroot   string `yaml:"riscv_sysroot"`
	Spike          string `yaml:"spike"`
	SpikeSignature string `yaml:"spike_signature"`
	ProxyKernel    string `yaml:"proxy_kernel"`
}

type Docker struct {
	Image string `yaml:"image"`
	User  string `yaml:"user"`
}

// Default returns the layout used by the compiler repository itself.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist and was not explicitly requested.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
	}
	return Load(path)
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func validate(cfg *Config) error {
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if cfg.SourceExt != "" && cfg.SourceExt[0] != '.' {
		return fmt.Errorf("source_ext %q must start with a dot", cfg.SourceExt)
	}
	if cfg.AnswerExt != "" && cfg.AnswerExt[0] != '.' {
		return fmt.Errorf("answer_ext %q must start with a dot", cfg.AnswerExt)
	}
	if len(cfg.Compiler) > 0 && cfg.Compiler[0] == "" {
		return fmt.Errorf("compiler: program name is required")
	}
	applyDefaults(cfg)
	return nil
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.ExamplesDir, "examples")
	setDefault(&cfg.SourceExt, ".mbt")
	setDefault(&cfg.AnswersDir, "ans")
	setDefault(&cfg.AnswerExt, ".ans")
	setDefault(&cfg.Runtime, "runtime.c")
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}
	if len(cfg.Compiler) == 0 {
		cfg.Compiler = []string{"moon", "run", "main", "--"}
	}

	t := &cfg.Tools
	setDefault(&t.CC, "clang")
	setDefault(&t.SystemCC, "gcc")
	setDefault(&t.AArch64Target, "aarch64-linux-gnu")
	setDefault(&t.QEMUAArch64, "qemu-aarch64")
	setDefault(&t.AArch64Sysroot, "/usr/aarch64-linux-gnu")
	setDefault(&t.RISCVLinuxCC, "riscv64-linux-gnu-gcc")
	setDefault(&t.RISCVElfCC, "riscv64-unknown-elf-gcc")
	setDefault(&t.QEMURISCV64, "qemu-riscv64")
	setDefault(&t.RISCVSysroot, "/usr/riscv64-linux-gnu")
	setDefault(&t.Spike, "spike")
	setDefault(&t.SpikeSignature, "Spike RISC-V ISA Simulator")
	setDefault(&t.ProxyKernel, "pk")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
