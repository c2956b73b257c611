package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [pipeline]",
	Short: "Check the pipeline for consistency",
	Long:  `Builds the task tree, resolves every reachable action and reports unreachable tasks.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFrom(cmd, args)
		opts.Strict, _ = cmd.Flags().GetBool("strict")
		return cli.Validate(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Reject duplicate task ids")
}
