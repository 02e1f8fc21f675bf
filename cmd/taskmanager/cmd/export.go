package cmd

import (
	"context"
	"fmt"

	"github.com/nfrund/taskmanager/internal/app"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/storage"
	"github.com/spf13/cobra"
)

func newExportCmd(rt *runtime) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task to a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), rt, func(ctx context.Context, store domain.TaskRepository) error {
				n, err := storage.Export(ctx, store, storage.NewAferoStore(rt.fs), out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", n, out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot file to write")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newImportCmd(rt *runtime) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create tasks from a JSON snapshot",
		Long: `Create every task in a snapshot written by "taskmanager export". Tasks
receive new IDs and are added after the existing ones. The import is all or
nothing: an invalid task or a store error leaves the existing tasks as they
were.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), rt, func(ctx context.Context, store domain.TaskRepository) error {
				n, err := storage.Import(ctx, store, storage.NewAferoStore(rt.fs), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks from %s\n", n, in)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Snapshot file to read")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// withStore opens the configured task store for fn and closes it afterwards.
func withStore(ctx context.Context, rt *runtime, fn func(context.Context, domain.TaskRepository) error) error {
	cfg, err := rt.loadConfig()
	if err != nil {
		return err
	}
	a := app.New(cfg)
	defer a.Shutdown(context.Background())

	store, err := a.Store()
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	return fn(ctx, store)
}
