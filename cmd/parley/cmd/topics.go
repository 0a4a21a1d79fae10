package cmd

import (
	"fmt"
	"strings"

	// Registers the presence topics with the default catalogue.
	_ "github.com/nfrund/parley/internal/presence"
	"github.com/nfrund/parley/internal/topicmgr"
	"github.com/spf13/cobra"
)

var (
	topicsFormat string
	topicsScope  string
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Inspect the pub/sub topics the server publishes",
	Long: `The topics command lists the in-process pub/sub topics. Other components,
such as the last-seen recorder, subscribe to these topics.

Examples:
  parley topics list
  parley topics list --scope framework --format json
  parley topics get presence.changed`,
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := topicmgr.Default()
		list := registry.List()
		if topicsScope != "" {
			scope, err := parseScope(topicsScope)
			if err != nil {
				return err
			}
			list = registry.ListByScope(scope)
		}
		return writeTopics(cmd.OutOrStdout(), list, topicsFormat)
	},
}

var topicsGetCmd = &cobra.Command{
	Use:   "get <topic-name>",
	Short: "Show one topic in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, ok := topicmgr.Default().Get(args[0])
		if !ok {
			return fmt.Errorf("topic %q not found; run 'parley topics list' to see all topics", args[0])
		}
		return writeTopicDetails(cmd.OutOrStdout(), topic, topicsFormat)
	},
}

func parseScope(s string) (topicmgr.Scope, error) {
	switch strings.ToLower(s) {
	case "framework":
		return topicmgr.ScopeFramework, nil
	case "module":
		return topicmgr.ScopeModule, nil
	default:
		return "", fmt.Errorf("invalid scope %q: use framework or module", s)
	}
}

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.AddCommand(topicsListCmd, topicsGetCmd)

	topicsCmd.PersistentFlags().StringVarP(&topicsFormat, "format", "f", "table", "Output format (table, json)")
	topicsListCmd.Flags().StringVarP(&topicsScope, "scope", "s", "", "Filter topics by scope (framework, module)")
}
