package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryLedger is an in-process escrow ledger. It backs the service when no
// chain-backed adapter is wired in, and is the adapter used in tests.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]uint64
	escrowed uint64
	logger   *zap.Logger
	clock    func() time.Time
}

// MemoryConfig holds memory ledger configuration.
type MemoryConfig struct {
	Logger *zap.Logger
	// Clock overrides time.Now, used by tests for deterministic timestamps.
	Clock func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(cfg *MemoryConfig) *MemoryLedger {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryLedger{
		balances: make(map[string]uint64),
		logger:   logger,
		clock:    clock,
	}
}

// Now returns the ledger's current time.
func (m *MemoryLedger) Now() time.Time {
	return m.clock()
}

// Credit funds an account. Used to seed balances in dev mode and tests.
func (m *MemoryLedger) Credit(account string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
}

// Escrow moves amount from the account's free balance into the escrow pool.
func (m *MemoryLedger) Escrow(ctx context.Context, account string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[account]
	if bal < amount {
		return fmt.Errorf("%w: account %s has %d, needs %d",
			ErrInsufficientFunds, account, bal, amount)
	}

	m.balances[account] = bal - amount
	m.escrowed += amount

	m.logger.Debug("escrow-captured",
		zap.String("account", account),
		zap.Uint64("amount", amount),
		zap.Uint64("escrow-pool", m.escrowed))

	return nil
}

// Transfer pays amount out of the escrow pool to the account.
func (m *MemoryLedger) Transfer(ctx context.Context, account string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.escrowed < amount {
		return fmt.Errorf("%w: pool %d, transfer %d",
			ErrInsufficientEscrow, m.escrowed, amount)
	}

	m.escrowed -= amount
	m.balances[account] += amount

	m.logger.Debug("escrow-released",
		zap.String("account", account),
		zap.Uint64("amount", amount),
		zap.Uint64("escrow-pool", m.escrowed))

	return nil
}

// Balance returns the free balance of the account.
func (m *MemoryLedger) Balance(account string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[account]
}

// Escrowed returns the total amount currently held in escrow.
func (m *MemoryLedger) Escrowed() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.escrowed
}
