package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sosi "github.com/tingold/orb-sosi"
	"github.com/tingold/orb-sosi/fgb"
	"github.com/tingold/orb-sosi/internal/config"
	"github.com/tingold/orb-sosi/sosifile"
)

var (
	// Global flags
	cfgFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sosistore",
	Short: "Read-only feature store for SOSI and FlatGeobuf files",
	Long: `sosistore exposes SOSI (.sos) and FlatGeobuf (.fgb) files as read-only
feature stores: one feature type per file, with a schema inferred from the
attributes actually present.

  sosistore info 0219Adresser.sos       # schema, count and extent
  sosistore dump 0219Adresser.sos       # GeoJSON to stdout
  sosistore export a.sos -o a.fgb       # convert to FlatGeobuf
  sosistore serve -c sosistore.yaml     # HTTP API over a directory`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "sosistore.yaml", "config file path")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	logger, err = cfg.Logging.NewLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func factories() []*sosi.Factory {
	return []*sosi.Factory{sosifile.Factory(), fgb.Factory()}
}

// openStore creates a store for path with the first factory accepting it.
func openStore(path string) (*sosi.Store, error) {
	for _, f := range factories() {
		if !f.CanProcess(path) {
			continue
		}
		opts := sosi.DefaultOptions()
		opts.Resolver = cfg.Registry()
		opts.Logger = logger
		return f.CreateStore(sosi.Params{File: path}, opts)
	}
	return nil, fmt.Errorf("unsupported file type: %s (want .sos or .fgb)", path)
}
