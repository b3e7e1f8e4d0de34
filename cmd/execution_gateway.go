/*
Copyright © 2026 Meridian HQ
*/
package cmd

import (
	"github.com/meridianhq/execore/internal/bootstrap"
	"github.com/spf13/cobra"
)

// executionGatewayCmd represents the execution gateway command
var executionGatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the execution query gateway",
	Long: `The gateway serves the HTTP query API and the websocket position
stream from an engine rebuilt out of the event journal.`,
	Run: bootstrap.StartExecutionGateway,
}

func init() {
	rootCmd.AddCommand(executionGatewayCmd)
}
