package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalnine/crossrun/internal/backend"
	"github.com/signalnine/crossrun/internal/host"
)

func newProbeCmd(opts *options) *cobra.Command {
	var targets []string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the host for the tools each backend needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := backend.ParseTargets(targets)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			var mounts []string
			if root, err := os.Getwd(); err == nil {
				mounts = append(mounts, root)
			}
			ex, finder, closeEx, err := newExecutor(cfg, mounts)
			if err != nil {
				return err
			}
			defer closeEx()

			caps, err := probeHost(cmd.Context(), cmd.ErrOrStderr(), ex, finder, cfg.Tools, ids)
			if err != nil {
				return err
			}
			return printCapabilities(cmd.OutOrStdout(), caps, ids)
		},
	}
	cmd.Flags().StringArrayVar(&targets, "target", []string{backend.AllTargets}, "backend to check (repeatable)")
	return cmd
}

func printCapabilities(w io.Writer, caps *host.Capabilities, ids []backend.ID) error {
	fmt.Fprintf(w, "OS:   %s\n", caps.OS())
	if caps.ArchAssumed() {
		fmt.Fprintf(w, "Arch: %s (assumed; machine reported %q)\n", caps.Arch(), caps.RawMachine())
	} else {
		fmt.Fprintf(w, "Arch: %s\n", caps.Arch())
	}
	fmt.Fprint(w, "Backends:")
	for _, id := range ids {
		fmt.Fprintf(w, " %s", id)
	}
	fmt.Fprintln(w)
	if len(caps.ToolNames()) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nTools:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range caps.ToolNames() {
		fmt.Fprintf(tw, "  %s\t%s\n", name, caps.Tool(name))
	}
	return tw.Flush()
}
