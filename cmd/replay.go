/*
Copyright © 2026 Meridian HQ
*/
package cmd

import (
	"github.com/meridianhq/execore/internal/bootstrap"
	"github.com/spf13/cobra"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild engine state from the event journal",
	Long: `Replay walks the event journal in commit order, rebuilds the order and
position aggregates, and reports whether the journal replays cleanly.`,
	Run: bootstrap.StartReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
