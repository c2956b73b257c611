package main

import (
	"errors"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [pipeline]",
	Short: "Execute a pipeline",
	Long: `Runs the pipeline once, printing task output to stdout and a summary to stderr.
With --watch the pipeline is re-run every time its definition changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFrom(cmd, args)
		if opts.Path == "" && opts.Dir == "" {
			return errors.New("a pipeline file or --dir is required")
		}
		opts.Parallel, _ = cmd.Flags().GetInt("parallel")
		opts.Strict, _ = cmd.Flags().GetBool("strict")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.Name, _ = cmd.Flags().GetString("name")
		watch, _ := cmd.Flags().GetBool("watch")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		if watch {
			return cli.RunWatch(ctx, opts)
		}
		return cli.Run(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("watch", "w", false, "Re-run the pipeline whenever it changes")
	runCmd.Flags().IntP("parallel", "p", 0, "Run up to N sibling branches concurrently (0 or 1 is sequential)")
	runCmd.Flags().Bool("strict", false, "Reject duplicate task ids")
	runCmd.Flags().BoolP("quiet", "q", false, "Only print task output")
	runCmd.Flags().String("name", "", "Pipeline name used for locking and history")
}
