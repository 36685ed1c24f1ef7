package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sosi "github.com/tingold/orb-sosi"
	"github.com/tingold/orb-sosi/fgb"
)

var (
	exportOutput      string
	exportDescription string
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Convert a file to FlatGeobuf",
	Long: `Convert a file to FlatGeobuf. Every attribute becomes a string column and
features without coordinates (e.g. text placements with no point) are
skipped.

Examples:
  sosistore export 0219Adresser.sos -o adresser.fgb`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output .fgb file (required)")
	exportCmd.Flags().StringVar(&exportDescription, "description", "", "layer description")
	_ = exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(args[0])
	if err != nil {
		return err
	}

	reader, err := store.Reader(sosi.Query{})
	if err != nil {
		return err
	}
	defer reader.Close()

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	stats, err := fgb.Export(f, reader, &fgb.Options{
		Description:  exportDescription,
		IncludeIndex: cfg.Export.Index(),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(exportOutput)
		return err
	}

	logger.Info("export finished",
		zap.String("output", exportOutput),
		zap.Int("written", stats.Written),
		zap.Int("skipped", stats.Skipped))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d features to %s (%d without coordinates skipped)\n",
		stats.Written, exportOutput, stats.Skipped)
	return nil
}
