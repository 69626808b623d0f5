package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "rawrcache",
		Short:   "rawrcache — semantic response cache for expensive text computations",
		Version: version,
	}

	root.AddCommand(
		newAskCmd(),
		newStatsCmd(),
		newSnapshotCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
