package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"geostream-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard",
	Long:  "dashboard writes a Grafana dashboard for the simulator metrics. The Prometheus datasource UID is read from " + dashboard.DatasourceEnv + ".",
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := dashboard.Render(dashboardOut)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "dashboards", "Output directory")
}
