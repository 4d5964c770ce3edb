package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/predictpool/settlement/internal/round"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listRoundsCmd = &cobra.Command{
	Use:   "list-rounds",
	Short: "List open rounds from a running settlement service",
	Long:  `Fetches and displays open prediction rounds from the service's HTTP API for debugging purposes.`,
	RunE:  runListRounds,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listRoundsCmd)
	listRoundsCmd.Flags().StringP("addr", "a", "http://localhost:8080", "Base URL of the settlement service")
	listRoundsCmd.Flags().BoolP("verbose", "v", false, "Show pool breakdown per round")
}

func runListRounds(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addr, _ := cmd.Flags().GetString("addr")
	verbose, _ := cmd.Flags().GetBool("verbose")

	rounds, err := fetchJSON[[]round.Round](ctx, addr+"/api/rounds")
	if err != nil {
		return fmt.Errorf("fetch rounds: %w", err)
	}

	if len(rounds) == 0 {
		fmt.Println("No open rounds.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tYES POOL\tNO POOL\tCREATED\n")
	fmt.Fprintf(w, "--\t-----\t--------\t-------\t-------\n")

	for i := range rounds {
		r := &rounds[i]

		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}

		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n",
			r.ID, title, r.TotalYesAmount, r.TotalNoAmount,
			r.CreatedAt.Format(time.RFC3339))

		if verbose {
			fmt.Fprintf(w, "\tCreator: %s\n", r.Creator)
			fmt.Fprintf(w, "\tPredictions: %d yes, %d no\n", r.YesCount, r.NoCount)
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()

	fmt.Printf("\nTotal: %d open rounds\n", len(rounds))

	return nil
}

// fetchJSON performs a GET and decodes the JSON body into T.
func fetchJSON[T any](ctx context.Context, url string) (T, error) {
	var out T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}

	return out, nil
}
