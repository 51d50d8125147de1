package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"po-outstanding-dashboard/cmd/podash/config"
	"po-outstanding-dashboard/internal/reconciler"
	"po-outstanding-dashboard/internal/server"
	"po-outstanding-dashboard/pkg/logger"

	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long: `Serve starts an HTTP server with the dashboard page, a JSON API and the
detail table downloads. The dataset is rebuilt whenever a source file changes.

Routes:
  GET /                    dashboard page
  GET /api/dashboard       KPIs, options, unit totals and rows as JSON
  GET /api/export.csv      detail table as CSV
  GET /api/export.xlsx     detail table as XLSX
  GET /healthz             source file check

Every route except /healthz accepts the sector, division and vendor query
parameters.

Examples:
  podash serve
  podash serve --addr 127.0.0.1:9000 --data-dir /srv/extracts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := a.newService()
			if err != nil {
				return err
			}

			cache := reconciler.NewCache(service, a.settings.SourcePaths())
			srv, err := server.New(cache, a.settings.ServerConfig(), logger.GetGlobalLogger())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if snapshot, err := cache.Get(ctx); err != nil {
				a.logger.WithError(err).Warn("Dataset not available yet, serving errors until the sources are fixed")
			} else {
				a.logger.WithFields(logger.Fields{
					"snapshot": snapshot.ID,
					"records":  len(snapshot.Records),
				}).Info("Dataset loaded")
			}

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("addr", server.DefaultConfig().Addr, "listen address")
	a.v.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))

	return cmd
}
