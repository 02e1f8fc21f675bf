package cmd

import (
	"context"
	"log/slog"

	"github.com/nfrund/taskmanager/internal/app"
	"github.com/nfrund/taskmanager/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(rt *runtime) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long: `Run the web server until interrupted. The listen address defaults to
SERVER_ADDR; the task store is chosen by STORE_BACKEND.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rt.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.GetServerAddr()
			}

			a := app.New(cfg)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
				defer cancel()
				if err := a.Shutdown(ctx); err != nil {
					slog.Error("Shutdown incomplete", "event", "shutdown_failed", "error", err)
				}
			}()

			slog.Info("Task Manager starting", "event", "app_start", "app", cfg.GetAppName(), "environment", cfg.GetEnvironment(), "store", cfg.GetStoreBackend())
			return a.Serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from SERVER_ADDR)")
	return cmd
}
