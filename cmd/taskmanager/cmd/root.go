// Package cmd holds the taskmanager command tree.
package cmd

import (
	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// runtime carries what the subcommands share. Tests swap the filesystem
// and the configuration loader.
type runtime struct {
	fs         afero.Fs
	loadConfig func() (*config.Config, error)
}

// NewRootCmd builds the command tree on the real filesystem and environment.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&runtime{fs: afero.NewOsFs(), loadConfig: config.New})
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskmanager",
		Short: "Task Manager web application",
		Long: `taskmanager serves the Task Manager web page and its JSON API, and
carries the maintenance commands for its task store.

Configuration comes from the environment and an optional .env file.
Use "taskmanager [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.New()
		},
	}

	root.AddCommand(
		newServeCmd(rt),
		newMigrateCmd(rt),
		newExportCmd(rt),
		newImportCmd(rt),
		newTopicsCmd(),
		newVersionCmd(),
	)
	return root
}
