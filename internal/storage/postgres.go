package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/prediction"
	"github.com/predictpool/settlement/internal/relay"
	"github.com/predictpool/settlement/internal/round"
)

// PostgresJournal implements Journal using PostgreSQL.
type PostgresJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresJournal opens and pings a PostgreSQL connection.
func NewPostgresJournal(cfg *PostgresConfig) (*PostgresJournal, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-journal-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresJournal{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// RoundChanged upserts the round's current state.
func (p *PostgresJournal) RoundChanged(ctx context.Context, r round.Round) error {
	query := `
		INSERT INTO rounds (
			id, title, description, status, creator, created_at,
			closed_at, settled_at, result, fee_basis_points,
			total_yes_amount, total_no_amount, yes_count, no_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			closed_at = EXCLUDED.closed_at,
			settled_at = EXCLUDED.settled_at,
			result = EXCLUDED.result,
			fee_basis_points = EXCLUDED.fee_basis_points,
			total_yes_amount = EXCLUDED.total_yes_amount,
			total_no_amount = EXCLUDED.total_no_amount,
			yes_count = EXCLUDED.yes_count,
			no_count = EXCLUDED.no_count
	`

	_, err := p.db.ExecContext(ctx, query,
		r.ID,
		r.Title,
		r.Description,
		r.Status.String(),
		r.Creator,
		r.CreatedAt,
		nullTime(r.ClosedAt),
		nullTime(r.SettledAt),
		r.Result,
		r.FeeBasisPoints,
		r.TotalYesAmount,
		r.TotalNoAmount,
		r.YesCount,
		r.NoCount,
	)
	if err != nil {
		return fmt.Errorf("upsert round: %w", err)
	}

	p.logger.Debug("round-journaled",
		zap.Uint64("round-id", r.ID),
		zap.String("status", r.Status.String()))

	return nil
}

// PredictionPlaced inserts the newly recorded prediction.
func (p *PostgresJournal) PredictionPlaced(ctx context.Context, pr prediction.Prediction) error {
	query := `
		INSERT INTO predictions (
			index, round_id, predictor, amount, side, placed_at, claimed
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		pr.Index,
		pr.RoundID,
		pr.Predictor,
		pr.Amount,
		pr.Side.String(),
		pr.PlacedAt,
		pr.Claimed,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}

	p.logger.Debug("prediction-journaled",
		zap.Uint64("prediction-index", pr.Index),
		zap.Uint64("round-id", pr.RoundID))

	return nil
}

// ClaimPaid inserts the claim receipt and flips the prediction's claimed
// flag.
func (p *PostgresJournal) ClaimPaid(ctx context.Context, c engine.ClaimReceipt) error {
	query := `
		INSERT INTO claims (
			id, prediction_index, round_id, predictor, payout, claimed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		c.ID,
		c.PredictionIndex,
		c.RoundID,
		c.Predictor,
		c.Payout,
		c.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`UPDATE predictions SET claimed = TRUE WHERE index = $1`,
		c.PredictionIndex,
	)
	if err != nil {
		return fmt.Errorf("mark prediction claimed: %w", err)
	}

	p.logger.Debug("claim-journaled",
		zap.String("claim-id", c.ID),
		zap.Uint64("payout", c.Payout))

	return nil
}

// RelayTransactionChanged upserts the cross-chain transaction's state.
func (p *PostgresJournal) RelayTransactionChanged(ctx context.Context, tx relay.Transaction) error {
	query := `
		INSERT INTO crosschain_transactions (
			index, round_id, winner, amount, status, nonce,
			signed_payload, external_tx_hash, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (index) DO UPDATE SET
			status = EXCLUDED.status,
			signed_payload = EXCLUDED.signed_payload,
			external_tx_hash = EXCLUDED.external_tx_hash
	`

	_, err := p.db.ExecContext(ctx, query,
		tx.Index,
		tx.RoundID,
		tx.Winner.Hex(),
		tx.Amount,
		tx.Status.String(),
		tx.Nonce,
		tx.SignedPayload,
		tx.ExternalTxHash,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert crosschain transaction: %w", err)
	}

	p.logger.Debug("crosschain-transaction-journaled",
		zap.Uint64("index", tx.Index),
		zap.String("status", tx.Status.String()))

	return nil
}

// Close closes the database connection.
func (p *PostgresJournal) Close() error {
	p.logger.Info("closing-postgres-journal")
	return p.db.Close()
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
