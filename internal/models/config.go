package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Tokens   TokenLedgerConfig
	Reward   RewardConfig

	// Authority is the administrative principal id used by the cmd tools for
	// authority-gated operations.
	Authority string

	// ContainersFile is the YAML fleet definition consumed by cmd/setup.
	ContainersFile string
}

// DatabaseConfig holds sqlite connection settings for the record store.
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// TokenLedgerConfig selects and configures the reward-token ledger backend.
type TokenLedgerConfig struct {
	// Backend is "sqlite" (default) or "formance".
	Backend string

	// SQLitePath is the sqlite backend's database file. It must be a
	// different file than the record store's.
	SQLitePath string

	Formance FormanceConfig
}

// FormanceConfig holds Formance Stack connection settings.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// RewardConfig holds the defaults used by cmd/setup when initializing the
// global state. After initialization the stored GlobalState is authoritative.
type RewardConfig struct {
	EcocPerKG        uint64
	MinDepositWeight uint64 // grams
}
