package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title           Peritagem API
// @version         1.0
// @description     Inspection workflow for hydraulic equipment: peritagens, profiles, dashboard and reports.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	root := &cobra.Command{
		Use:           "peritagem",
		Short:         "Peritagem workflow API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newSeedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
