package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Show the feature type, count and extent of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	store, err := openStore(args[0])
	if err != nil {
		return err
	}

	ft, err := store.FeatureType()
	if err != nil {
		return err
	}
	count, err := store.Count()
	if err != nil {
		return err
	}
	ext, err := store.Bounds()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Feature type: %s\n", ft.Name)
	fmt.Fprintf(out, "Features:     %d\n", count)
	fmt.Fprintf(out, "Attributes:   %s\n", strings.Join(ft.Schema.Attributes, ", "))
	fmt.Fprintf(out, "Geometry:     %s\n", ft.Schema.GeometryField)
	fmt.Fprintf(out, "CRS:          %s\n", ft.CRS)
	if ext.Resolved() {
		e := ext.Envelope()
		fmt.Fprintf(out, "Extent:       %g %g %g %g (%s)\n", e[0], e[1], e[2], e[3], ext.CRS.ID())
	} else {
		fmt.Fprintln(out, "Extent:       unresolved")
	}
	return nil
}
