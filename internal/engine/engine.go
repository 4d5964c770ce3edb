// Package engine implements the round lifecycle and settlement state
// machine: escrow accumulation, closing, outcome settlement, proportional
// payout claims, and the handoff to the cross-chain relay coordinator.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/ledger"
	"github.com/predictpool/settlement/internal/prediction"
	"github.com/predictpool/settlement/internal/round"
)

// Relayer is the slice of the relay coordinator the engine needs at
// settlement. Creation is fire-and-forget: settlement never fails because of
// a cross-chain signing outcome.
type Relayer interface {
	Create(ctx context.Context, roundID uint64, winner common.Address, amount uint64) (uint64, error)
}

// ClaimReceipt records one successful payout.
type ClaimReceipt struct {
	ID              string    `json:"id"`
	PredictionIndex uint64    `json:"prediction_index"`
	RoundID         uint64    `json:"round_id"`
	Predictor       string    `json:"predictor"`
	Payout          uint64    `json:"payout"`
	ClaimedAt       time.Time `json:"claimed_at"`
}

// Journal is the durable audit sink. Writes are best-effort: a journal error
// is logged, never rolled back into the operation, because the in-memory
// stores stay authoritative.
type Journal interface {
	RoundChanged(ctx context.Context, r round.Round) error
	PredictionPlaced(ctx context.Context, p prediction.Prediction) error
	ClaimPaid(ctx context.Context, c ClaimReceipt) error
}

// Engine serializes every state-mutating operation behind one write lock,
// reproducing the serialized-transaction semantics of the original chain
// runtime. View operations take the read lock and never observe a partially
// applied transition.
type Engine struct {
	mu sync.RWMutex

	owner     string
	feeBps    uint64
	paused    bool
	minAmount uint64

	totalVolume   uint64
	collectedFees uint64

	rounds      *round.Store
	predictions *prediction.Store
	ledger      ledger.Ledger
	relayer     Relayer
	journal     Journal
	logger      *zap.Logger
}

// Config holds engine configuration and collaborators.
type Config struct {
	Owner               string
	FeeBasisPoints      uint64
	MinPredictionAmount uint64
	Paused              bool

	Rounds      *round.Store
	Predictions *prediction.Store
	Ledger      ledger.Ledger
	Relayer     Relayer // optional
	Journal     Journal // optional
	Logger      *zap.Logger
}

// New creates a settlement engine.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Owner == "" {
		return nil, fmt.Errorf("owner cannot be empty")
	}
	if cfg.FeeBasisPoints > MaxFeeBasisPoints {
		return nil, fmt.Errorf("%w: got %d", ErrFeeTooHigh, cfg.FeeBasisPoints)
	}
	if cfg.MinPredictionAmount == 0 {
		return nil, fmt.Errorf("minimum prediction amount must be positive")
	}
	if cfg.Rounds == nil || cfg.Predictions == nil {
		return nil, fmt.Errorf("round and prediction stores cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Engine{
		owner:       cfg.Owner,
		feeBps:      cfg.FeeBasisPoints,
		paused:      cfg.Paused,
		minAmount:   cfg.MinPredictionAmount,
		rounds:      cfg.Rounds,
		predictions: cfg.Predictions,
		ledger:      cfg.Ledger,
		relayer:     cfg.Relayer,
		journal:     cfg.Journal,
		logger:      cfg.Logger,
	}, nil
}

// OpenRound creates a new open round. Owner-only; rejected while paused.
func (e *Engine) OpenRound(ctx context.Context, caller, title, description string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}
	if e.paused {
		return 0, ErrContractPaused
	}

	id, err := e.rounds.Create(title, description, caller, e.ledger.Now())
	if err != nil {
		return 0, err
	}

	RoundsOpened.Inc()
	e.logger.Info("round-opened",
		zap.Uint64("round-id", id),
		zap.String("title", title))

	e.journalRound(ctx, id)
	return id, nil
}

// PlacePrediction escrows the caller's stake on one side of an open round
// and records the prediction. The escrow is captured before any store write;
// if escrow fails the operation leaves all stores unchanged.
func (e *Engine) PlacePrediction(ctx context.Context, caller string, roundID uint64, side prediction.Side, amount uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return 0, ErrContractPaused
	}

	r, err := e.rounds.Get(roundID)
	if err != nil {
		return 0, err
	}
	if r.Status != round.StatusOpen {
		return 0, fmt.Errorf("%w: round %d is %s", ErrRoundNotOpen, roundID, r.Status)
	}
	if amount < e.minAmount {
		return 0, fmt.Errorf("%w: got %d, minimum %d", ErrAmountTooLow, amount, e.minAmount)
	}

	if err := e.ledger.Escrow(ctx, caller, amount); err != nil {
		return 0, fmt.Errorf("escrow stake: %w", err)
	}

	idx, err := e.predictions.Record(roundID, caller, amount, side, e.ledger.Now())
	if err != nil {
		// Amount was validated above; this cannot happen with the escrow
		// already captured, so surface it loudly.
		e.logger.Error("prediction-record-failed-after-escrow",
			zap.Uint64("round-id", roundID),
			zap.Error(err))
		return 0, err
	}
	if err := e.rounds.AddStake(roundID, side == prediction.SideYes, amount); err != nil {
		return 0, err
	}

	e.totalVolume += amount

	PredictionsPlaced.WithLabelValues(side.String()).Inc()
	VolumeTotal.Add(float64(amount))

	e.logger.Info("prediction-placed",
		zap.Uint64("prediction-index", idx),
		zap.Uint64("round-id", roundID),
		zap.String("predictor", caller),
		zap.String("side", side.String()),
		zap.Uint64("amount", amount))

	if e.journal != nil {
		p, _ := e.predictions.Get(idx)
		if err := e.journal.PredictionPlaced(ctx, p); err != nil {
			e.logger.Error("journal-prediction-failed", zap.Error(err))
		}
	}
	e.journalRound(ctx, roundID)

	return idx, nil
}

// CloseRound transitions an open round to closed. Owner-only.
func (e *Engine) CloseRound(ctx context.Context, caller string, roundID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}

	r, err := e.rounds.Get(roundID)
	if err != nil {
		return err
	}
	if r.Status != round.StatusOpen {
		return fmt.Errorf("%w: round %d is %s", ErrRoundNotOpen, roundID, r.Status)
	}

	if err := e.rounds.Close(roundID, e.ledger.Now()); err != nil {
		return err
	}

	e.logger.Info("round-closed", zap.Uint64("round-id", roundID))
	e.journalRound(ctx, roundID)
	return nil
}

// SettleRound records the outcome of a closed round, accrues the platform
// fee from the losing pool and, when the winning pool is non-empty and a
// winner address was supplied, hands the payout off to the relay
// coordinator. The handoff is fire-and-forget: a relay error is logged and
// settlement still succeeds.
func (e *Engine) SettleRound(ctx context.Context, caller string, roundID uint64, result bool, winnerAddress string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}

	r, err := e.rounds.Get(roundID)
	if err != nil {
		return err
	}
	if r.Status != round.StatusClosed {
		return fmt.Errorf("%w: round %d is %s", ErrRoundNotClosed, roundID, r.Status)
	}

	if err := e.rounds.Settle(roundID, result, e.feeBps, e.ledger.Now()); err != nil {
		return err
	}

	settled, _ := e.rounds.Get(roundID)
	fee := Fee(settled.LosingPool(), settled.FeeBasisPoints)
	e.collectedFees += fee

	RoundsSettled.Inc()
	FeesCollected.Add(float64(fee))

	e.logger.Info("round-settled",
		zap.Uint64("round-id", roundID),
		zap.Bool("result", result),
		zap.Uint64("winning-pool", settled.WinningPool()),
		zap.Uint64("losing-pool", settled.LosingPool()),
		zap.Uint64("fee", fee))

	if e.relayer != nil && settled.WinningPool() > 0 && winnerAddress != "" {
		winner := common.HexToAddress(winnerAddress)
		if _, err := e.relayer.Create(ctx, roundID, winner, settled.WinningPool()); err != nil {
			e.logger.Error("relay-create-failed",
				zap.Uint64("round-id", roundID),
				zap.Error(err))
		}
	}

	e.journalRound(ctx, roundID)
	return nil
}

// ClaimWinnings pays out a winning prediction exactly once. The ledger
// transfer is synchronous and checked before the claimed flag flips, so a
// failed transfer leaves the prediction claimable.
func (e *Engine) ClaimWinnings(ctx context.Context, caller string, predictionIndex uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.predictions.Get(predictionIndex)
	if err != nil {
		return 0, err
	}
	if p.Predictor != caller {
		return 0, fmt.Errorf("%w: prediction %d", ErrNotYourPrediction, predictionIndex)
	}
	if p.Claimed {
		return 0, fmt.Errorf("%w: prediction %d", ErrAlreadyClaimed, predictionIndex)
	}

	r, err := e.rounds.Get(p.RoundID)
	if err != nil {
		return 0, err
	}
	if r.Status != round.StatusSettled {
		return 0, fmt.Errorf("%w: round %d is %s", ErrRoundNotSettled, p.RoundID, r.Status)
	}
	if !p.Side.Matches(r.Result) {
		return 0, fmt.Errorf("%w: prediction %d", ErrPredictionIncorrect, predictionIndex)
	}
	if r.WinningPool() == 0 {
		return 0, fmt.Errorf("%w: round %d", ErrNoWinningPool, p.RoundID)
	}

	payout := Payout(p.Amount, r.WinningPool(), r.LosingPool(), r.FeeBasisPoints)

	if err := e.ledger.Transfer(ctx, caller, payout); err != nil {
		ClaimTransferFailures.Inc()
		return 0, fmt.Errorf("transfer payout: %w", err)
	}
	if err := e.predictions.MarkClaimed(predictionIndex); err != nil {
		return 0, err
	}

	ClaimsPaid.Inc()
	PayoutsTotal.Add(float64(payout))

	e.logger.Info("winnings-claimed",
		zap.Uint64("prediction-index", predictionIndex),
		zap.Uint64("round-id", p.RoundID),
		zap.String("predictor", caller),
		zap.Uint64("payout", payout))

	if e.journal != nil {
		receipt := ClaimReceipt{
			ID:              uuid.New().String(),
			PredictionIndex: predictionIndex,
			RoundID:         p.RoundID,
			Predictor:       caller,
			Payout:          payout,
			ClaimedAt:       e.ledger.Now(),
		}
		if err := e.journal.ClaimPaid(ctx, receipt); err != nil {
			e.logger.Error("journal-claim-failed", zap.Error(err))
		}
	}

	return payout, nil
}

// GetRound returns the round with the given id.
func (e *Engine) GetRound(id uint64) (round.Round, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rounds.Get(id)
}

// ListOpenRounds returns all open rounds.
func (e *Engine) ListOpenRounds() []round.Round {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rounds.ListOpen()
}

// PredictionsFor returns all predictions placed by the account.
func (e *Engine) PredictionsFor(account string) []prediction.Prediction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.predictions.ForAccount(account)
}

// GetPrediction returns the prediction at index.
func (e *Engine) GetPrediction(index uint64) (prediction.Prediction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.predictions.Get(index)
}

// TotalVolume returns the sum of all accepted stakes.
func (e *Engine) TotalVolume() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.totalVolume
}

// requireOwner checks caller identity against the configured owner.
func (e *Engine) requireOwner(caller string) error {
	if caller != e.owner {
		return fmt.Errorf("%w: caller %s", ErrUnauthorized, caller)
	}
	return nil
}

// journalRound records the round's current state to the journal,
// best-effort.
func (e *Engine) journalRound(ctx context.Context, id uint64) {
	if e.journal == nil {
		return
	}
	r, err := e.rounds.Get(id)
	if err != nil {
		return
	}
	if err := e.journal.RoundChanged(ctx, r); err != nil {
		e.logger.Error("journal-round-failed",
			zap.Uint64("round-id", id),
			zap.Error(err))
	}
}
