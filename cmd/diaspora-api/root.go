package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute builds the command tree and runs it. Without args it reads
// os.Args.
func Execute(args ...string) {
	if err := newRootCommand(args...).Execute(); err != nil {
		os.Exit(1) //revive:disable-line:deep-exit
	}
}

func newRootCommand(args ...string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diaspora-api",
		Short: "Backend API for consultations, diaspora requests, payments and resources",
		Long: `diaspora-api serves the backend HTTP API.

At startup it connects to PostgreSQL with a fixed retry budget. When the
database is not configured or cannot be reached, the service keeps running
without it: database-backed endpoints answer 503 until the next restart.

ENVIRONMENT VARIABLES:
  DATABASE_URL              PostgreSQL connection URL (optional)
  DATABASE_RETRY_ATTEMPTS   Connection attempts at startup (default: 3)
  DATABASE_RETRY_DELAY      Fixed pause between attempts (default: 5s)
  DATABASE_CONNECT_TIMEOUT  Timeout of a single attempt (default: 10s)
  DATABASE_MAX_CONNS        Pool size (default: 10)
  DATABASE_MIN_CONNS        Connections kept open (default: 0)
  HTTP_ADDR                 Listen address (default: :8080)
  HTTP_SHUTDOWN_TIMEOUT     Graceful shutdown timeout (default: 15s)
  LOG_LEVEL                 debug, info, warn, error (default: info)
  LOG_FORMAT                json, console (default: json)`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	if len(args) > 0 {
		rootCmd.SetArgs(args)
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
