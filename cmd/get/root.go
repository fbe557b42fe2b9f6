package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "get",
		Short:         "Fetch collections and ingest podcast feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&ctx.flags.configFile, "config", "c", "", "Configuration file path")
	f.StringVar(&ctx.flags.envFile, "env-file", "", "dotenv file loaded before environment overrides (default .env)")
	f.IntVarP(&ctx.flags.workers, "workers", "w", 0, "Workers per stage (default: number of CPUs)")
	f.IntVar(&ctx.flags.maxAttempts, "max-attempts", 0, "Attempts per task before giving up on unavailable remotes, 0 retries forever")
	f.DurationVar(&ctx.flags.timeout, "timeout", 0, "Per-request timeout (default 30s)")
	f.StringVar(&ctx.flags.stateDB, "state-db", "", "SQLite state database path")
	f.StringVar(&ctx.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&ctx.flags.logFile, "log-file", "", "Also write JSON logs to this file")
	f.StringVar(&ctx.flags.listen, "listen", "", "Serve /health, /jobs and /metrics on this address while running")

	rootCmd.AddCommand(newMangaDexCommand(ctx))
	rootCmd.AddCommand(newPodcastsCommand(ctx))

	return rootCmd
}

// withUsage prints the command's usage when its arguments are rejected.
func withUsage(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			cmd.PrintErr(cmd.UsageString())
			return err
		}
		return nil
	}
}
