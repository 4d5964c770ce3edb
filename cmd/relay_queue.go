package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/predictpool/settlement/internal/relay"
)

//nolint:gochecknoglobals // Cobra boilerplate
var relayQueueCmd = &cobra.Command{
	Use:   "relay-queue",
	Short: "Show cross-chain transactions awaiting relay",
	Long: `Fetches the relay queue from a running settlement service: payout
instructions still awaiting signature (pending) or submission (signed).`,
	RunE: runRelayQueue,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(relayQueueCmd)
	relayQueueCmd.Flags().StringP("addr", "a", "http://localhost:8080", "Base URL of the settlement service")
}

func runRelayQueue(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addr, _ := cmd.Flags().GetString("addr")

	txs, err := fetchJSON[[]relay.Transaction](ctx, addr+"/api/relay/pending")
	if err != nil {
		return fmt.Errorf("fetch relay queue: %w", err)
	}

	if len(txs) == 0 {
		fmt.Println("Relay queue is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "INDEX\tROUND\tWINNER\tAMOUNT\tSTATUS\tCREATED\n")
	fmt.Fprintf(w, "-----\t-----\t------\t------\t------\t-------\n")

	for i := range txs {
		tx := &txs[i]
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%s\n",
			tx.Index, tx.RoundID, tx.Winner.Hex(), tx.Amount,
			tx.Status, tx.CreatedAt.Format(time.RFC3339))
	}

	w.Flush()

	fmt.Printf("\nTotal: %d transactions awaiting relay\n", len(txs))

	return nil
}
