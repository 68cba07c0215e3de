package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"vendor-rewards-api/internal/ledger"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist. It is the
	// ledger's sentinel so ledger callers and CRUD callers test the same value.
	ErrNotFound = ledger.ErrNotFound
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("database: conflicting record")
)

// DefaultBusyTimeout is how long a writer waits for the database lock.
const DefaultBusyTimeout = 5 * time.Second

// querier is the subset of *sql.DB and *sql.Tx the queries need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds the lookups shared by DB and by units of work.
type queries struct {
	q querier
}

// DB wraps the database connection and provides methods for data access.
type DB struct {
	queries
	conn *sql.DB
}

// Options tunes the SQLite connection.
type Options struct {
	BusyTimeout time.Duration
}

// NewDB opens the SQLite database at dbPath and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	return NewDBWithOptions(dbPath, Options{BusyTimeout: DefaultBusyTimeout})
}

// NewDBWithOptions is NewDB with explicit connection options.
//
// Every transaction is opened with BEGIN IMMEDIATE, so a unit of work holds
// the write lock from its first read. That serializes concurrent
// read-modify-write cycles on reward balances.
func NewDBWithOptions(dbPath string, opts Options) (*DB, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	dsn := fmt.Sprintf("%s?_foreign_keys=1&_txlock=immediate&_busy_timeout=%d",
		dbPath, opts.BusyTimeout.Milliseconds())

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := NewFromConn(conn)

	if err := db.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// NewFromConn wraps an already opened connection without touching the schema.
func NewFromConn(conn *sql.DB) *DB {
	return &DB{queries: queries{q: conn}, conn: conn}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate creates the necessary tables if they don't exist.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vendors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			menu TEXT NOT NULL DEFAULT '',
			cost INTEGER NOT NULL DEFAULT 0,
			purchase_to_points INTEGER NOT NULL DEFAULT 0 CHECK (purchase_to_points >= 0),
			category TEXT NOT NULL DEFAULT '',
			cuisine TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			vendor_id INTEGER NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, vendor_id)
		)`,
		`CREATE TABLE IF NOT EXISTS menu_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vendor_id INTEGER NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
			item TEXT NOT NULL,
			price INTEGER NOT NULL CHECK (price >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS deals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vendor_id INTEGER NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
			item TEXT NOT NULL,
			price INTEGER NOT NULL DEFAULT 0,
			points_required INTEGER NOT NULL CHECK (points_required >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS rewards (
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			vendor_id INTEGER NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
			points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, vendor_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reward_entries (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			vendor_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			delta INTEGER NOT NULL,
			deal_id INTEGER,
			created_at TEXT NOT NULL,
			FOREIGN KEY (user_id, vendor_id) REFERENCES rewards(user_id, vendor_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vendors_name ON vendors(name)`,
		`CREATE INDEX IF NOT EXISTS idx_menu_items_vendor ON menu_items(vendor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_vendor ON deals(vendor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rewards_vendor ON rewards(vendor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_entries_balance ON reward_entries(user_id, vendor_id, created_at)`,
	}

	for _, query := range stmts {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// unitOfWork runs ledger lookups and writes on a single transaction.
type unitOfWork struct {
	queries
}

var _ ledger.UnitOfWork = (*unitOfWork)(nil)

// WithinTx runs fn inside one transaction, committing when fn returns nil.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, uow ledger.UnitOfWork) error) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(ctx, &unitOfWork{queries: queries{q: tx}})
	})
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// translate maps driver constraint errors onto package sentinels.
func translate(err error, what string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s references a missing record: %w", what, ErrNotFound)
		}
	}
	return fmt.Errorf("failed to write %s: %w", what, err)
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s does not exist: %w", what, ErrNotFound)
	}
	return nil
}
