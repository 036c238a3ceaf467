package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/crossrun/internal/config"
)

type options struct {
	cfgFile     string
	targets     []string
	format      string
	dockerImage string
	workDir     string
	timeout     int
	dryRun      bool
	verbose     bool
}

func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "crossrun [sample-file]",
		Short: "Cross-backend conformance runner for the compiler's code generators",
		Long: "Compile every sample with each requested backend, link it against the runtime, " +
			"run it natively or under an emulator and compare its output with the recorded answer.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && cmd.Flags().NFlag() == 0 {
				return cmd.Help()
			}
			return runConformance(cmd, opts, args)
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "crossrun.yaml", "config file path")
	root.Flags().StringArrayVar(&opts.targets, "target", nil, "backend to test: llvm, aarch64, riscv64 or all (repeatable)")
	root.Flags().StringVar(&opts.format, "format", "table", "summary format: table, markdown or json")
	root.PersistentFlags().StringVar(&opts.dockerImage, "docker-image", "", "run every tool inside this container image")
	root.Flags().StringVar(&opts.workDir, "work-dir", "", "directory for intermediate artifacts (default: a fresh temp dir)")
	root.PersistentFlags().IntVar(&opts.timeout, "timeout", 0, "per-command timeout in seconds")
	root.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the planned commands without running them")
	root.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every command before it runs")

	root.AddCommand(newProbeCmd(opts))
	root.AddCommand(newListCmd(opts))
	return root
}

// loadConfig reads the config file and applies flag overrides. A missing
// default config file means built-in defaults.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.cfgFile, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if opts.timeout < 0 {
		return nil, fmt.Errorf("--timeout must not be negative")
	}
	if opts.timeout > 0 {
		cfg.TimeoutSeconds = opts.timeout
	}
	if opts.dockerImage != "" {
		cfg.Docker.Image = opts.dockerImage
	}
	if opts.workDir != "" {
		cfg.WorkDir = opts.workDir
	}
	return cfg, nil
}
