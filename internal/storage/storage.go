// Package storage persists the engine's state changes to a durable audit
// journal. The in-memory stores stay authoritative; the journal is a
// write-behind sink, so a storage error is surfaced to the caller for
// logging but never rolls an operation back.
package storage

import (
	"context"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/relay"
)

// Journal is the durable sink for rounds, predictions, claims and
// cross-chain transactions.
type Journal interface {
	engine.Journal

	// RelayTransactionChanged records a cross-chain transaction's current
	// state, creation included.
	RelayTransactionChanged(ctx context.Context, tx relay.Transaction) error

	// Close releases the underlying connection.
	Close() error
}
