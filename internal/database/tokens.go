package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"ecobottle-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time check: *TokenLedger must satisfy store.TokenLedger.
var _ store.TokenLedger = (*TokenLedger)(nil)

// TokenLedger is the sqlite-backed reward-token ledger. It keeps a hot
// balance row per user plus an immutable token_transactions audit trail,
// updated together under optimistic locking.
//
// The ledger opens its own database file. It must not share a file with the
// record store: Mint and Burn run while a record-store transaction holds its
// write lock, and a second writer on the same file would block against it.
type TokenLedger struct {
	db *sql.DB
}

func NewTokenLedger(ctx context.Context, path string) (*TokenLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("token ledger database path cannot be empty")
	}

	zap.L().Info("Opening token ledger database", zap.String("file", path))
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open token ledger database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping token ledger database: %w", err)
	}

	ledger := &TokenLedger{db: db}
	if err := ledger.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize token ledger schema: %w", err)
	}
	return ledger, nil
}

func (l *TokenLedger) initSchema() error {
	schema := `
	-- Token Balances Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS token_balances (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		last_transaction_id TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Token Transactions Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS token_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance_before INTEGER NOT NULL,
		balance_after INTEGER NOT NULL,
		reference TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_token_transactions_user_id ON token_transactions(user_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_token_transactions_reference
		ON token_transactions(reference) WHERE reference != '';
	`

	_, err := l.db.Exec(schema)
	return err
}

func (l *TokenLedger) Close() {
	if err := l.db.Close(); err != nil {
		zap.L().Warn("Failed to close token ledger database connection", zap.Error(err))
	}
}

func (l *TokenLedger) Mint(ctx context.Context, toUser string, amount uint64, reference string) error {
	return l.apply(ctx, toUser, "mint", amount, reference)
}

func (l *TokenLedger) Burn(ctx context.Context, fromUser string, amount uint64, reference string) error {
	return l.apply(ctx, fromUser, "burn", amount, reference)
}

func (l *TokenLedger) BalanceOf(ctx context.Context, user string) (uint64, error) {
	var balance int64
	var version int64
	err := l.db.QueryRowContext(ctx, queryGetTokenBalance, user).Scan(&balance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return 0, nil
	}
	if err != nil {
		zap.L().Error("Failed to get token balance", zap.String("user_id", user), zap.Error(err))
		return 0, fmt.Errorf("failed to get token balance: %w", err)
	}
	return uint64(balance), nil
}

// apply atomically updates the balance row and appends the audit transaction.
func (l *TokenLedger) apply(ctx context.Context, user, txType string, amount uint64, reference string) error {
	zap.L().Info("Processing token transaction",
		zap.String("user_id", user),
		zap.String("type", txType),
		zap.Uint64("amount", amount),
		zap.String("reference", reference))

	// Check for duplicate reference before doing any work
	if reference != "" {
		var existingTxId string
		err := l.db.QueryRowContext(ctx, queryCheckDuplicateTokenTransaction, reference).Scan(&existingTxId)
		if err == nil {
			zap.L().Warn("Duplicate token transaction reference detected, skipping",
				zap.String("reference", reference),
				zap.String("existing_transaction_id", existingTxId))
			return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, reference)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check for duplicate token transaction: %w", err)
		}
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	var version int64
	err = tx.QueryRowContext(ctx, queryGetTokenBalance, user).Scan(&balance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		balance = 0
		version = 1
		if _, err := tx.ExecContext(ctx, queryInsertTokenBalance, user, 0, 1); err != nil {
			return fmt.Errorf("failed to create token balance: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to get current token balance: %w", err)
	}

	currentBalance := uint64(balance)
	var newBalance uint64
	switch txType {
	case "mint":
		newBalance = currentBalance + amount
		if newBalance < currentBalance || newBalance > math.MaxInt64 {
			return fmt.Errorf("%w: user %s", store.ErrBalanceOverflow, user)
		}
	case "burn":
		if currentBalance < amount {
			return fmt.Errorf("%w: user %s has %d, needs %d", store.ErrInsufficientBalance, user, currentBalance, amount)
		}
		newBalance = currentBalance - amount
	default:
		return fmt.Errorf("unknown token transaction type: %s", txType)
	}

	transactionId := uuid.New().String()
	now := time.Now()
	_, err = tx.ExecContext(ctx, queryInsertTokenTransaction,
		transactionId, user, txType, int64(amount), int64(currentBalance), int64(newBalance),
		reference, now)
	if err != nil {
		return fmt.Errorf("failed to insert token transaction: %w", err)
	}

	// Update balance with optimistic locking
	result, err := tx.ExecContext(ctx, queryUpdateTokenBalance, int64(newBalance), transactionId, user, version)
	if err != nil {
		return fmt.Errorf("failed to update token balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("token balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token transaction: %w", err)
	}

	zap.L().Info("Token transaction processed successfully",
		zap.String("transaction_id", transactionId),
		zap.String("user_id", user),
		zap.String("type", txType),
		zap.Uint64("old_balance", currentBalance),
		zap.Uint64("new_balance", newBalance))
	return nil
}
