// Package cmd holds the parley command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley chat server",
	Long: `Parley is a chat backend: a JSON API for accounts, chats, messages and
statuses, plus a WebSocket endpoint for presence and live message delivery.

Available commands:
  serve     Run the HTTP and WebSocket server
  topics    Inspect the pub/sub topics the server publishes
  version   Print the version

Use "parley [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
