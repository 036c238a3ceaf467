package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/crossrun/internal/sample"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered samples and whether each has an answer file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			samples, err := sample.Discover(cfg.ExamplesDir, cfg.SourceExt, cfg.AnswersDir, cfg.AnswerExt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Samples in %s:\n", cfg.ExamplesDir)
			missing := 0
			for _, s := range samples {
				if s.HasAnswer() {
					fmt.Fprintf(out, "  - %s\n", s.Name)
					continue
				}
				missing++
				fmt.Fprintf(out, "  - %s (no answer file)\n", s.Name)
			}
			fmt.Fprintf(out, "\n%d samples, %d without answers\n", len(samples), missing)
			return nil
		},
	}
}
