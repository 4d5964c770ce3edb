package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Pause gates new rounds and predictions. Owner-only. Closing, settling and
// claiming stay available so funds are never trapped.
func (e *Engine) Pause(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.paused = true
	PausedGauge.Set(1)
	e.logger.Warn("platform-paused")
	return nil
}

// Unpause lifts the pause gate. Owner-only.
func (e *Engine) Unpause(caller string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.paused = false
	PausedGauge.Set(0)
	e.logger.Info("platform-unpaused")
	return nil
}

// SetFee updates the platform fee for future settlements. Owner-only,
// capped at MaxFeeBasisPoints. Already settled rounds keep the fee
// snapshotted at their settlement.
func (e *Engine) SetFee(caller string, basisPoints uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if basisPoints > MaxFeeBasisPoints {
		return fmt.Errorf("%w: got %d", ErrFeeTooHigh, basisPoints)
	}

	e.feeBps = basisPoints
	e.logger.Info("platform-fee-updated", zap.Uint64("fee-bps", basisPoints))
	return nil
}

// WithdrawFees transfers all accrued fees to the owner and returns the
// amount withdrawn. Owner-only.
func (e *Engine) WithdrawFees(ctx context.Context, caller string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}

	amount := e.collectedFees
	if amount == 0 {
		return 0, nil
	}

	if err := e.ledger.Transfer(ctx, e.owner, amount); err != nil {
		return 0, fmt.Errorf("transfer fees: %w", err)
	}
	e.collectedFees = 0

	e.logger.Info("fees-withdrawn", zap.Uint64("amount", amount))
	return amount, nil
}

// Owner returns the configured owner identity.
func (e *Engine) Owner() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

// IsPaused reports whether the pause gate is set.
func (e *Engine) IsPaused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// FeeBasisPoints returns the fee applied to future settlements.
func (e *Engine) FeeBasisPoints() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feeBps
}

// CollectedFees returns fees accrued and not yet withdrawn.
func (e *Engine) CollectedFees() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.collectedFees
}
