package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "geostream-sim",
	Short: "Fleet telemetry simulator",
	Long:  "geostream-sim drives a fleet of simulated trucks that stream position, speed and engine temperature to a gRPC ingestion backend.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(dashboardCmd)
}
