package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	sosi "github.com/tingold/orb-sosi"
)

var dumpLimit int

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Write the features of a file as a GeoJSON FeatureCollection",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().IntVar(&dumpLimit, "limit", 0, "maximum number of features (0 for all)")
}

func runDump(cmd *cobra.Command, args []string) error {
	store, err := openStore(args[0])
	if err != nil {
		return err
	}

	fc, err := store.Features(sosi.Query{MaxFeatures: dumpLimit})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}
