package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [pipeline]",
	Short: "Export the task tree visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the task tree. Unreachable tasks are
drawn dashed. With --run the visited and failed tasks of a stored run are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		return cli.Graph(cmd.Context(), optionsFrom(cmd, args), runID)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Overlay a stored run (needs --redis to find past runs)")
}
