package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor runs tree-shaped task pipelines",
	Long: `Arbor executes pipelines whose tasks form a tree. Each task works on its
own copy of the state produced by its parent, so sibling branches never see
each other's changes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().Bool("debug", false, "Log executor events to stderr")
	rootCmd.PersistentFlags().String("log-format", "text", "Debug log format: text or json")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for run history, locking and visited sets (env "+cli.RedisAddrEnv+")")
	rootCmd.PersistentFlags().Duration("run-ttl", 0, "Expire stored runs after this long (0 keeps them)")
	rootCmd.PersistentFlags().String("dir", "", "Load tasks from a directory with one document per task instead of a pipeline file")
}

// optionsFrom collects the shared flags. The first positional argument is the
// pipeline file.
func optionsFrom(cmd *cobra.Command, args []string) cli.Options {
	flags := cmd.Flags()
	opts := cli.Options{}
	opts.Debug, _ = flags.GetBool("debug")
	opts.LogFormat, _ = flags.GetString("log-format")
	opts.RedisAddr, _ = flags.GetString("redis")
	opts.RunTTL, _ = flags.GetDuration("run-ttl")
	opts.Dir, _ = flags.GetString("dir")
	if len(args) > 0 {
		opts.Path = args[0]
	}
	return opts
}
