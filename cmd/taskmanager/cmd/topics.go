package cmd

import (
	"fmt"

	"github.com/nfrund/taskmanager/cmd/taskmanager/internal/topics"
	_ "github.com/nfrund/taskmanager/internal/modules/tasks/events" // registers the task topics
	"github.com/nfrund/taskmanager/internal/topicmgr"
	"github.com/spf13/cobra"
)

func newTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Explore the event topics the application publishes",
		Long: `The topics command lists the events published on the internal bus when
tasks change, with their payload fields.

Examples:
  taskmanager topics list
  taskmanager topics list --module task --format json
  taskmanager topics get task.created`,
	}
	cmd.AddCommand(newTopicsListCmd(), newTopicsGetCmd())
	return cmd
}

func newTopicsListCmd() *cobra.Command {
	var format, module string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all registered topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := topicmgr.Default()
			list := manager.List()
			if module != "" {
				list = manager.ListByModule(module)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return topics.WriteJSON(out, list)
			case "table":
				if len(list) == 0 {
					fmt.Fprintln(out, "No topics found")
					return nil
				}
				return topics.WriteTable(out, list)
			default:
				return fmt.Errorf("unsupported output format %q, use 'table' or 'json'", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().StringVarP(&module, "module", "m", "", "Filter topics by module name")
	return cmd
}

func newTopicsGetCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get <topic-name>",
		Short: "Show the details of one topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, ok := topicmgr.Default().Get(args[0])
			if !ok {
				return fmt.Errorf("topic %q not found; use 'taskmanager topics list' to see all topics", args[0])
			}
			return topics.WriteDetails(cmd.OutOrStdout(), topic, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	return cmd
}
