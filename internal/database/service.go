package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecobottle-ledger-go/internal/models"
	"ecobottle-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.RecordStore.
var _ store.RecordStore = (*Service)(nil)

// Service is the sqlite-backed key-addressed record store.
type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Record store initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Key-addressed records: one row per derived identifier
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		body TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Index for listing records of one kind
	CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Service) Get(ctx context.Context, key string) (*models.Record, error) {
	return getRecord(ctx, s.db, key)
}

func (s *Service) List(ctx context.Context, kind string) ([]models.Record, error) {
	zap.L().Debug("Listing records", zap.String("kind", kind))

	rows, err := s.db.QueryContext(ctx, queryListRecordsByKind, kind)
	if err != nil {
		zap.L().Error("Failed to list records", zap.String("kind", kind), zap.Error(err))
		return nil, fmt.Errorf("unable to list records: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var records []models.Record
	for rows.Next() {
		var rec models.Record
		var body string
		err := rows.Scan(&rec.Key, &rec.Kind, &body, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan record row: %w", err)
		}
		rec.Body = []byte(body)
		records = append(records, rec)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during record row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating record rows: %w", err)
	}

	return records, nil
}

// RunInTx executes fn inside a single sqlite transaction. The commit happens
// only after fn returns nil; any error rolls every staged mutation back.
func (s *Service) RunInTx(ctx context.Context, fn func(tx store.RecordTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&recordTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier abstracts *sql.DB and *sql.Tx for shared read paths.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q querier, key string) (*models.Record, error) {
	var rec models.Record
	var body string
	err := q.QueryRowContext(ctx, queryGetRecord, key).Scan(
		&rec.Key, &rec.Kind, &body, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrRecordNotFound, key)
		}
		zap.L().Error("Failed to query record", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("unable to query record: %w", err)
	}
	rec.Body = []byte(body)
	return &rec, nil
}

// recordTx implements store.RecordTx over one open sqlite transaction.
type recordTx struct {
	tx *sql.Tx
}

func (r *recordTx) Get(ctx context.Context, key string) (*models.Record, error) {
	return getRecord(ctx, r.tx, key)
}

func (r *recordTx) Create(ctx context.Context, key, kind string, body []byte) error {
	now := time.Now()
	result, err := r.tx.ExecContext(ctx, queryInsertRecord, key, kind, string(body), now, now)
	if err != nil {
		return fmt.Errorf("unable to insert record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrRecordExists, key)
	}
	return nil
}

func (r *recordTx) Update(ctx context.Context, key string, body []byte, expectedVersion int64) error {
	result, err := r.tx.ExecContext(ctx, queryUpdateRecord, string(body), key, expectedVersion)
	if err != nil {
		return fmt.Errorf("unable to update record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrConcurrentModification, key)
	}
	return nil
}
