/*
Copyright © 2026 Meridian HQ
*/
package cmd

import (
	"github.com/meridianhq/execore/internal/bootstrap"
	"github.com/spf13/cobra"
)

// executionWorkerCmd represents the execution worker command
var executionWorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the execution event worker",
	Long: `The worker consumes execution events from the inbound stream, journals
them, applies them to the order and position aggregates, and publishes
derived position lifecycle events.`,
	Run: bootstrap.StartExecutionWorker,
}

func init() {
	rootCmd.AddCommand(executionWorkerCmd)
}
