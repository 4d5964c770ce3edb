package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/prediction"
	"github.com/predictpool/settlement/internal/relay"
	"github.com/predictpool/settlement/internal/round"
)

// ConsoleJournal prints state changes to stdout. Used in dev mode when no
// database is configured.
type ConsoleJournal struct {
	logger *zap.Logger
}

// NewConsoleJournal creates a console journal.
func NewConsoleJournal(logger *zap.Logger) *ConsoleJournal {
	return &ConsoleJournal{logger: logger}
}

// RoundChanged prints the round's current state.
func (c *ConsoleJournal) RoundChanged(ctx context.Context, r round.Round) error {
	fmt.Printf("ROUND %d [%s] %q yes=%d(%d) no=%d(%d)\n",
		r.ID, r.Status, r.Title,
		r.TotalYesAmount, r.YesCount,
		r.TotalNoAmount, r.NoCount)
	return nil
}

// PredictionPlaced prints the prediction.
func (c *ConsoleJournal) PredictionPlaced(ctx context.Context, p prediction.Prediction) error {
	fmt.Printf("PREDICTION %d round=%d %s %s amount=%d\n",
		p.Index, p.RoundID, p.Predictor, p.Side, p.Amount)
	return nil
}

// ClaimPaid prints the claim receipt.
func (c *ConsoleJournal) ClaimPaid(ctx context.Context, r engine.ClaimReceipt) error {
	fmt.Printf("CLAIM %s prediction=%d round=%d %s payout=%d\n",
		r.ID, r.PredictionIndex, r.RoundID, r.Predictor, r.Payout)
	return nil
}

// RelayTransactionChanged prints the cross-chain transaction state.
func (c *ConsoleJournal) RelayTransactionChanged(ctx context.Context, tx relay.Transaction) error {
	fmt.Printf("RELAY %d [%s] round=%d winner=%s amount=%d\n",
		tx.Index, tx.Status, tx.RoundID, tx.Winner.Hex(), tx.Amount)
	return nil
}

// Close is a no-op for the console journal.
func (c *ConsoleJournal) Close() error {
	c.logger.Info("closing-console-journal")
	return nil
}
