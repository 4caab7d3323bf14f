package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/johnsaigle/ghstars/pkg/maintenance"
	"github.com/johnsaigle/ghstars/pkg/server"
)

var (
	listenAddr          string
	maintenanceInterval time.Duration

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups over HTTP",
		Long: `Serve lookups over HTTP for badge clients.

Cache maintenance runs at startup and then on a fixed interval.`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config, 127.0.0.1:8787)")
	serveCmd.Flags().DurationVar(&maintenanceInterval, "maintenance-interval", 0, "interval between maintenance runs (default from config, 1h)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenAddr == "" {
		listenAddr = cfg.Server.Listen
	}
	if maintenanceInterval == 0 {
		maintenanceInterval = cfg.Server.MaintenanceInterval
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	settings := cfg.Settings()
	if settings.Token == "" {
		logger.Warn("no GitHub token configured; requests are limited to 60 per hour")
	}

	go rt.maint.Schedule(ctx, maintenanceInterval, maintenance.PolicyFor(settings))

	srv := server.New(rt.svc, rt.maint, settings,
		server.WithLogger(logger),
		server.WithStats(rt.counter))
	return srv.ListenAndServe(ctx, listenAddr)
}
