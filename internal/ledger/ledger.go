// Package ledger abstracts the value-transfer primitives the settlement
// engine depends on: escrowing a caller's stake and paying out winnings.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds is returned when an account cannot cover an
	// escrow request.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientEscrow is returned when a payout would exceed the
	// escrowed pool. Indicates a bookkeeping bug, not a caller error.
	ErrInsufficientEscrow = errors.New("escrow pool cannot cover transfer")
)

// Ledger is the adapter consumed by the settlement engine. Transfer must be
// synchronous and checked: it either completes or returns an error, and the
// engine only commits a claim after a successful transfer.
type Ledger interface {
	// Now returns the ledger's notion of current time.
	Now() time.Time

	// Escrow moves amount from the account's balance into the escrow pool.
	Escrow(ctx context.Context, account string, amount uint64) error

	// Transfer pays amount out of the escrow pool to the account.
	Transfer(ctx context.Context, account string, amount uint64) error

	// Balance returns the free (non-escrowed) balance of the account.
	Balance(account string) uint64
}
