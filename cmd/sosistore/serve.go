package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tingold/orb-sosi/internal/catalog"
	"github.com/tingold/orb-sosi/internal/metrics"
	"github.com/tingold/orb-sosi/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a directory of files over HTTP",
	Long: `Serve every .sos and .fgb file in the configured data directory.

Routes:
  GET /collections                     list collections
  GET /collections/{name}              schema, count, extent
  GET /collections/{name}/items        GeoJSON (?limit=N)
  GET /collections/{name}/items.fgb    FlatGeobuf
  GET /metrics                         Prometheus metrics (when enabled)

Environment variables:
  SOSISTORE_DATA_DIR        - directory to serve (default: .)
  SOSISTORE_DATA_WATCH      - reload metadata when files change
  SOSISTORE_SERVER_PORT     - server port (default: 8080)
  SOSISTORE_LOG_LEVEL       - debug, info, warn, error
  SOSISTORE_METRICS_ENABLED - expose /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var m *metrics.Collector
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	cat, err := catalog.New(cfg.Data.Dir, catalog.Options{
		Factories: factories(),
		Resolver:  cfg.Registry(),
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		return err
	}
	if cfg.Data.Watch {
		if err := cat.Watch(); err != nil {
			return err
		}
		defer cat.Stop()
	}

	srvCfg := server.Config{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IncludeIndex: cfg.Export.Index(),
	}
	if cfg.Metrics.Enabled {
		srvCfg.MetricsPath = cfg.Metrics.Path
	}

	logger.Info("serving collections",
		zap.String("dir", cat.Dir()),
		zap.Strings("collections", cat.Names()))
	return server.New(cat, srvCfg, server.Options{Metrics: m, Logger: logger}).ListenAndServe(ctx)
}

