package cmd

import (
	"fmt"

	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/database/sqlite"
	"github.com/spf13/cobra"
)

func newMigrateCmd(rt *runtime) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the SQLite schema up to date",
		Long: `Apply pending schema migrations to the SQLite database. The server also
migrates on startup; this command lets you do it ahead of a deploy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				if cfg.GetStoreBackend() != config.BackendSQLite {
					return fmt.Errorf("migrate applies to the sqlite backend, STORE_BACKEND is %q", cfg.GetStoreBackend())
				}
				path = cfg.GetSQLitePath()
			}

			db, err := sqlite.Open(path)
			if err != nil {
				return fmt.Errorf("opening %q: %w", path, err)
			}
			defer db.Close()

			version, err := sqlite.Migrate(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", path, version)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "SQLite database file (default from SQLITE_PATH)")
	return cmd
}
