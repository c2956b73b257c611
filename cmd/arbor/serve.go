package main

import (
	"github.com/aretw0/arbor/internal/cli"
	httpadapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the engine as a JSON API: submit pipelines to POST /runs, browse
history on /runs, stream task events from /events and scrape /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFrom(cmd, nil)
		opts.Parallel, _ = cmd.Flags().GetInt("parallel")
		opts.RunTimeout, _ = cmd.Flags().GetDuration("run-timeout")
		port, _ := cmd.Flags().GetString("port")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.Serve(ctx, opts, port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "8080", "Port to listen on")
	serveCmd.Flags().IntP("parallel", "p", 0, "Run up to N sibling branches concurrently")
	serveCmd.Flags().Duration("run-timeout", httpadapter.DefaultRunTimeout, "Abort runs submitted over HTTP after this long (0 disables)")
}
