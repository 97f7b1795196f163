package store

import (
	"context"
	"errors"

	"ecobottle-ledger-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	// ErrRecordNotFound is returned when no record exists at a derived key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned by Create when the derived key is already
	// taken (create-iff-absent semantics).
	ErrRecordExists = errors.New("record already exists")

	// ErrConcurrentModification is returned when a versioned update lost a
	// race against another writer.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateTransaction is returned by the token ledger when a mint or
	// burn reference was already processed.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInsufficientBalance is returned by Burn when the user's live token
	// balance is below the requested amount.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrBalanceOverflow is returned by Mint when crediting would overflow
	// the balance counter.
	ErrBalanceOverflow = errors.New("token balance overflow")
)

// RecordTx is the view of the record store inside one transaction. All reads
// and writes of a core operation go through a single RecordTx so that either
// every mutation commits or none does.
type RecordTx interface {
	// Get returns the record at key, or ErrRecordNotFound.
	Get(ctx context.Context, key string) (*models.Record, error)

	// Create inserts a new record iff the key is absent, else ErrRecordExists.
	Create(ctx context.Context, key, kind string, body []byte) error

	// Update overwrites the body of an existing record iff its version still
	// equals expectedVersion, else ErrConcurrentModification.
	Update(ctx context.Context, key string, body []byte, expectedVersion int64) error
}

// RecordStore is the key-addressed record store collaborator.
type RecordStore interface {
	// Get reads a single record outside any transaction.
	Get(ctx context.Context, key string) (*models.Record, error)

	// List returns all records of one kind, ordered by key.
	List(ctx context.Context, kind string) ([]models.Record, error)

	// RunInTx executes fn inside a single storage transaction and commits iff
	// fn returns nil.
	RunInTx(ctx context.Context, fn func(tx RecordTx) error) error

	Close()
}

// TokenLedger is the reward-token ledger collaborator. The reference is an
// opaque correlation id; processing the same reference twice returns
// ErrDuplicateTransaction.
type TokenLedger interface {
	// Mint credits amount to the user's balance, authorized as the system.
	Mint(ctx context.Context, toUser string, amount uint64, reference string) error

	// Burn debits amount from the user's balance, authorized as the user.
	// Fails with ErrInsufficientBalance when the live balance is too low.
	Burn(ctx context.Context, fromUser string, amount uint64, reference string) error

	// BalanceOf returns the user's live token balance (zero if unknown).
	BalanceOf(ctx context.Context, user string) (uint64, error)

	Close()
}
