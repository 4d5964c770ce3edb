// Package relay coordinates cross-chain payout-mint instructions: it builds
// the instruction for the second ledger, requests a threshold signature,
// and tracks relay status until confirmation.
package relay

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/signer"
)

// signatureResult carries an asynchronous signing outcome back into the
// coordinator's event loop.
type signatureResult struct {
	index     uint64
	signature []byte
	err       error
}

// Coordinator owns the append-only log of cross-chain transactions and their
// state machine. Signature requests are dispatched asynchronously; results
// arrive on an internal channel and are applied by the Run loop, so the
// settlement path never blocks on signing.
type Coordinator struct {
	mu      sync.RWMutex
	txs     []*Transaction
	byRound map[uint64]uint64

	signer         signer.Signer
	derivationPath string
	payloadCfg     *payloadConfig
	nextNonce      uint64

	results        chan signatureResult
	ready          chan ReadyEvent
	pendingTimeout time.Duration
	sweepInterval  time.Duration

	logger *zap.Logger
	clock  func() time.Time
}

// Config holds coordinator configuration.
type Config struct {
	Signer         signer.Signer
	DerivationPath string

	ChainID      uint64
	MintContract common.Address
	GasLimit     uint64
	GasPriceWei  *big.Int
	// AmountMultiplier converts the escrow ledger's smallest unit into the
	// second ledger's token unit (e.g. 1e12 for 6 -> 18 decimals).
	AmountMultiplier *big.Int

	// PendingTimeout bounds how long a transaction may sit in Pending
	// before the sweeper fails it. Guards against signature callbacks that
	// never arrive.
	PendingTimeout time.Duration
	SweepInterval  time.Duration

	Logger *zap.Logger
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// New creates a relay coordinator. Run must be called for signature results
// and timeouts to be processed.
func New(cfg *Config) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.PendingTimeout <= 0 {
		return nil, fmt.Errorf("pending timeout must be positive")
	}

	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = cfg.PendingTimeout / 4
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	gasPrice := cfg.GasPriceWei
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	multiplier := cfg.AmountMultiplier
	if multiplier == nil || multiplier.Sign() == 0 {
		multiplier = big.NewInt(1)
	}

	return &Coordinator{
		byRound:        make(map[uint64]uint64),
		signer:         cfg.Signer,
		derivationPath: cfg.DerivationPath,
		payloadCfg: &payloadConfig{
			chainID:          cfg.ChainID,
			mintContract:     cfg.MintContract,
			gasLimit:         cfg.GasLimit,
			gasPrice:         gasPrice,
			amountMultiplier: multiplier,
		},
		results:        make(chan signatureResult, 64),
		ready:          make(chan ReadyEvent, 64),
		pendingTimeout: cfg.PendingTimeout,
		sweepInterval:  sweep,
		logger:         cfg.Logger,
		clock:          clock,
	}, nil
}

// Ready exposes the stream of "ready for relay" signals emitted when a
// transaction reaches Signed.
func (c *Coordinator) Ready() <-chan ReadyEvent {
	return c.ready
}

// Create allocates a Pending transaction for the round's winning payout,
// builds the mint instruction and dispatches the signature request. At most
// one transaction may exist per round.
func (c *Coordinator) Create(ctx context.Context, roundID uint64, winner common.Address, amount uint64) (uint64, error) {
	c.mu.Lock()

	if existing, ok := c.byRound[roundID]; ok {
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: round %d already has transaction %d",
			ErrDuplicateRound, roundID, existing)
	}

	nonce := c.nextNonce
	c.nextNonce++

	payload, err := buildMintInstruction(c.payloadCfg, winner, amount, nonce)
	if err != nil {
		c.mu.Unlock()
		return 0, fmt.Errorf("build mint instruction: %w", err)
	}

	idx := uint64(len(c.txs))
	c.txs = append(c.txs, &Transaction{
		Index:     idx,
		RoundID:   roundID,
		Winner:    winner,
		Amount:    amount,
		Status:    StatusPending,
		Nonce:     nonce,
		Payload:   payload,
		CreatedAt: c.clock(),
	})
	c.byRound[roundID] = idx
	c.mu.Unlock()

	TransactionsCreated.Inc()
	TransactionsByStatus.WithLabelValues(StatusPending.String()).Inc()

	c.logger.Info("cross-chain-transaction-created",
		zap.Uint64("index", idx),
		zap.Uint64("round-id", roundID),
		zap.String("winner", winner.Hex()),
		zap.Uint64("amount", amount),
		zap.Uint64("nonce", nonce))

	c.requestSignature(ctx, idx, payload)

	return idx, nil
}

// requestSignature dispatches the asynchronous signing call. The result is
// delivered to the Run loop; the caller's transaction completes
// independently.
func (c *Coordinator) requestSignature(ctx context.Context, index uint64, payload []byte) {
	go func() {
		sig, err := c.signer.Sign(ctx, payload, c.derivationPath)
		select {
		case c.results <- signatureResult{index: index, signature: sig, err: err}:
		case <-ctx.Done():
			c.logger.Warn("signature-result-dropped",
				zap.Uint64("index", index),
				zap.Error(ctx.Err()))
		}
	}()
}

// Run processes signature results and sweeps timed-out Pending transactions
// until the context is cancelled. Call it in a goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("relay-coordinator-started",
		zap.Duration("pending-timeout", c.pendingTimeout),
		zap.String("mint-contract", c.payloadCfg.mintContract.Hex()))

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("relay-coordinator-stopped")
			return
		case res := <-c.results:
			c.onSignatureResult(res)
		case <-ticker.C:
			c.sweepTimeouts()
		}
	}
}

// onSignatureResult applies a signing outcome. Success moves the transaction
// to Signed and emits a ready signal; failure (or an empty signature) moves
// it to Failed permanently. A late result for a transaction the sweeper
// already failed is ignored.
func (c *Coordinator) onSignatureResult(res signatureResult) {
	c.mu.Lock()

	if res.index >= uint64(len(c.txs)) {
		c.mu.Unlock()
		c.logger.Error("signature-result-unknown-index", zap.Uint64("index", res.index))
		return
	}

	tx := c.txs[res.index]
	if tx.Status != StatusPending {
		c.mu.Unlock()
		c.logger.Warn("signature-result-ignored",
			zap.Uint64("index", res.index),
			zap.String("status", tx.Status.String()))
		return
	}

	if res.err != nil || len(res.signature) == 0 {
		tx.Status = StatusFailed
		c.mu.Unlock()

		TransactionsByStatus.WithLabelValues(StatusFailed.String()).Inc()
		SignatureFailures.Inc()

		// Not retried automatically: re-signing with a stale nonce could
		// double-spend on the second ledger. Requires manual re-drive.
		c.logger.Error("signature-request-failed",
			zap.Uint64("index", res.index),
			zap.Error(res.err))
		return
	}

	envelope, err := buildSignedEnvelope(tx.Payload, res.signature)
	if err != nil {
		tx.Status = StatusFailed
		c.mu.Unlock()

		TransactionsByStatus.WithLabelValues(StatusFailed.String()).Inc()
		c.logger.Error("signed-envelope-build-failed",
			zap.Uint64("index", res.index),
			zap.Error(err))
		return
	}

	tx.SignedPayload = envelope
	tx.Status = StatusSigned
	event := ReadyEvent{
		Index:         tx.Index,
		RoundID:       tx.RoundID,
		SignedPayload: envelope,
	}
	c.mu.Unlock()

	TransactionsByStatus.WithLabelValues(StatusSigned.String()).Inc()

	c.logger.Info("transaction-signed",
		zap.Uint64("index", event.Index),
		zap.Uint64("round-id", event.RoundID))

	select {
	case c.ready <- event:
	default:
		// Consumers poll ListPending as well, so a full buffer only costs
		// the push notification.
		c.logger.Warn("ready-signal-dropped", zap.Uint64("index", event.Index))
	}
}

// sweepTimeouts fails Pending transactions whose signature callback never
// arrived within the configured window.
func (c *Coordinator) sweepTimeouts() {
	now := c.clock()

	c.mu.Lock()
	var expired []uint64
	for _, tx := range c.txs {
		if tx.Status == StatusPending && now.Sub(tx.CreatedAt) > c.pendingTimeout {
			tx.Status = StatusFailed
			expired = append(expired, tx.Index)
		}
	}
	c.mu.Unlock()

	for _, idx := range expired {
		TransactionsByStatus.WithLabelValues(StatusFailed.String()).Inc()
		SignatureTimeouts.Inc()
		c.logger.Error("pending-transaction-timed-out", zap.Uint64("index", idx))
	}
}

// UpdateStatus applies a status report from the relay service. Repeating the
// current status is an idempotent no-op; anything other than the legal
// forward steps is rejected with ErrInvalidTransition.
func (c *Coordinator) UpdateStatus(index uint64, target Status, externalTxHash string) error {
	c.mu.Lock()

	if index >= uint64(len(c.txs)) {
		c.mu.Unlock()
		return fmt.Errorf("%w: index %d", ErrTransactionNotFound, index)
	}

	tx := c.txs[index]

	if tx.Status == target {
		c.mu.Unlock()
		return nil
	}

	if !tx.Status.canAdvanceTo(target) {
		from, to := tx.Status, target
		c.mu.Unlock()
		return fmt.Errorf("%w: transaction %d is %s, cannot become %s",
			ErrInvalidTransition, index, from, to)
	}

	tx.Status = target
	if externalTxHash != "" {
		tx.ExternalTxHash = externalTxHash
	}
	c.mu.Unlock()

	TransactionsByStatus.WithLabelValues(target.String()).Inc()

	c.logger.Info("transaction-status-updated",
		zap.Uint64("index", index),
		zap.String("status", target.String()),
		zap.String("external-tx-hash", externalTxHash))

	return nil
}

// Get returns a copy of the transaction at index.
func (c *Coordinator) Get(index uint64) (Transaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index >= uint64(len(c.txs)) {
		return Transaction{}, fmt.Errorf("%w: index %d", ErrTransactionNotFound, index)
	}
	return *c.txs[index], nil
}

// ListPending returns copies of all transactions the relay service still has
// work to do on: Pending (awaiting signature) and Signed (awaiting
// submission).
func (c *Coordinator) ListPending() []Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Transaction, 0)
	for _, tx := range c.txs {
		if tx.Status == StatusPending || tx.Status == StatusSigned {
			out = append(out, *tx)
		}
	}
	return out
}

// Len returns the number of transactions ever created.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.txs)
}
