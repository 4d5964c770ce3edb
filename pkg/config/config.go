package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Platform
	OwnerID             string
	OwnerToken          string
	FeeBasisPoints      uint64
	MinPredictionAmount uint64
	StartPaused         bool

	// Dev ledger seeding (memory ledger only): balance credited to the
	// owner at startup. Other accounts are funded via the faucet endpoint.
	SeedBalance uint64

	// Cross-chain relay
	RelayChainID          uint64
	RelayMintContract     string
	RelayDerivationPath   string
	RelayGasLimit         uint64
	RelayGasPriceWei      *big.Int
	RelayAmountMultiplier *big.Int
	RelayPendingTimeout   time.Duration
	RelaySweepInterval    time.Duration
	SignerPrivateKey      string

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Read cache
	CacheNumCounters int64
	CacheMaxCost     int64
	CacheTTL         time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Platform defaults
		OwnerID:             getEnvOrDefault("OWNER_ID", "owner"),
		OwnerToken:          os.Getenv("OWNER_TOKEN"),
		FeeBasisPoints:      getUint64OrDefault("FEE_BASIS_POINTS", 100),
		MinPredictionAmount: getUint64OrDefault("MIN_PREDICTION_AMOUNT", 1_000_000),
		StartPaused:         getBoolOrDefault("START_PAUSED", false),
		SeedBalance:         getUint64OrDefault("DEV_SEED_BALANCE", 0),

		// Relay defaults
		RelayChainID:        getUint64OrDefault("RELAY_CHAIN_ID", 11155111),
		RelayMintContract:   os.Getenv("RELAY_MINT_CONTRACT"),
		RelayDerivationPath: getEnvOrDefault("RELAY_DERIVATION_PATH", "predictpool-payouts-v1"),
		RelayGasLimit:       getUint64OrDefault("RELAY_GAS_LIMIT", 120_000),
		RelayGasPriceWei:    getBigIntOrDefault("RELAY_GAS_PRICE_WEI", big.NewInt(30_000_000_000)),
		// Escrow uses 6 decimals, the payout token 18.
		RelayAmountMultiplier: getBigIntOrDefault("RELAY_AMOUNT_MULTIPLIER", new(big.Int).SetUint64(1_000_000_000_000)),
		RelayPendingTimeout:   getDurationOrDefault("RELAY_PENDING_TIMEOUT", 5*time.Minute),
		RelaySweepInterval:    getDurationOrDefault("RELAY_SWEEP_INTERVAL", 30*time.Second),
		SignerPrivateKey:      os.Getenv("SIGNER_PRIVATE_KEY"),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "predictpool"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "predictpool123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "predictpool"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Cache defaults
		CacheNumCounters: getInt64OrDefault("CACHE_NUM_COUNTERS", 10_000),
		CacheMaxCost:     getInt64OrDefault("CACHE_MAX_COST", 1_000),
		CacheTTL:         getDurationOrDefault("CACHE_TTL", 5*time.Minute),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.OwnerID == "" {
		return fmt.Errorf("OWNER_ID cannot be empty")
	}

	if c.FeeBasisPoints > 1000 {
		return fmt.Errorf("FEE_BASIS_POINTS must be at most 1000 (10%%), got %d", c.FeeBasisPoints)
	}

	if c.MinPredictionAmount == 0 {
		return fmt.Errorf("MIN_PREDICTION_AMOUNT must be positive")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	if c.RelayPendingTimeout <= 0 {
		return fmt.Errorf("RELAY_PENDING_TIMEOUT must be positive")
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getUint64OrDefault(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getBigIntOrDefault(key string, defaultValue *big.Int) *big.Int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	bigVal, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return defaultValue
	}

	return bigVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
