// Package app wires the settlement service together: stores, ledger,
// signer, relay coordinator, engine, journal, cache, relay feed and the
// HTTP server.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/predictpool/settlement/internal/engine"
	"github.com/predictpool/settlement/internal/ledger"
	"github.com/predictpool/settlement/internal/prediction"
	"github.com/predictpool/settlement/internal/relay"
	"github.com/predictpool/settlement/internal/round"
	"github.com/predictpool/settlement/internal/signer"
	"github.com/predictpool/settlement/internal/storage"
	"github.com/predictpool/settlement/pkg/cache"
	"github.com/predictpool/settlement/pkg/config"
	"github.com/predictpool/settlement/pkg/healthprobe"
	"github.com/predictpool/settlement/pkg/httpserver"
	"github.com/predictpool/settlement/pkg/websocket"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	engine        *engine.Engine
	coordinator   *relay.Coordinator
	journal       storage.Journal
	memLedger     *ledger.MemoryLedger
	roundCache    cache.Cache
	relayFeed     *websocket.Hub
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New builds the application from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}

	// Ledger. The in-process escrow ledger backs the service; a
	// chain-backed adapter would be swapped in here.
	a.memLedger = ledger.NewMemoryLedger(&ledger.MemoryConfig{Logger: logger})
	if cfg.SeedBalance > 0 {
		a.memLedger.Credit(cfg.OwnerID, cfg.SeedBalance)
	}

	// Journal.
	journal, err := newJournal(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create journal: %w", err)
	}
	a.journal = journal

	// Threshold signer. The local key stands in for the MPC service.
	sgn, err := newSigner(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create signer: %w", err)
	}

	// Relay coordinator.
	coordinator, err := relay.New(&relay.Config{
		Signer:           sgn,
		DerivationPath:   cfg.RelayDerivationPath,
		ChainID:          cfg.RelayChainID,
		MintContract:     common.HexToAddress(cfg.RelayMintContract),
		GasLimit:         cfg.RelayGasLimit,
		GasPriceWei:      cfg.RelayGasPriceWei,
		AmountMultiplier: cfg.RelayAmountMultiplier,
		PendingTimeout:   cfg.RelayPendingTimeout,
		SweepInterval:    cfg.RelaySweepInterval,
		Logger:           logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create relay coordinator: %w", err)
	}
	a.coordinator = coordinator

	// Settlement engine.
	eng, err := engine.New(&engine.Config{
		Owner:               cfg.OwnerID,
		FeeBasisPoints:      cfg.FeeBasisPoints,
		MinPredictionAmount: cfg.MinPredictionAmount,
		Paused:              cfg.StartPaused,
		Rounds:              round.NewStore(),
		Predictions:         prediction.NewStore(),
		Ledger:              a.memLedger,
		Relayer:             coordinator,
		Journal:             journal,
		Logger:              logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create engine: %w", err)
	}
	a.engine = eng

	// Settled-round read cache.
	roundCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: cfg.CacheNumCounters,
		MaxCost:     cfg.CacheMaxCost,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create cache: %w", err)
	}
	a.roundCache = roundCache

	// Relay feed.
	a.relayFeed = websocket.NewHub(logger)

	// HTTP server.
	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: a.healthChecker,
		Engine:        eng,
		Coordinator:   coordinator,
		Journal:       journal,
		Cache:         roundCache,
		CacheTTL:      cfg.CacheTTL,
		RelayFeed:     a.relayFeed,
		Faucet:        a.memLedger,
		OwnerToken:    cfg.OwnerToken,
	})

	return a, nil
}

// newJournal selects the journal implementation from the storage mode.
func newJournal(cfg *config.Config, logger *zap.Logger) (storage.Journal, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresJournal(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return storage.NewConsoleJournal(logger), nil
}

// newSigner builds the threshold-signing client. Without a configured key a
// throwaway dev key is generated, which is fine for console mode but should
// never back a production relay.
func newSigner(cfg *config.Config, logger *zap.Logger) (signer.Signer, error) {
	if cfg.SignerPrivateKey != "" {
		return signer.NewLocalSigner(cfg.SignerPrivateKey)
	}

	logger.Warn("signer-key-not-configured-generating-ephemeral")
	return signer.NewEphemeralSigner()
}
