package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "predictpool",
	Short: "Binary prediction settlement engine",
	Long: `Settlement engine for binary prediction rounds: escrows stakes on
placement, settles rounds with proportional payouts from the losing pool,
and coordinates signed cross-chain payout instructions for relay workers.

The service exposes an HTTP API for round lifecycle, predictions and
claims, plus a relay surface (poll + websocket feed) for the service that
submits signed mint instructions to the second ledger.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
