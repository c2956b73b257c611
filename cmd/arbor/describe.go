package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <pipeline>",
	Short: "List the tasks a pipeline would execute",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Describe(optionsFrom(cmd, args))
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
