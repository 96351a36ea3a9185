// Package storage implements the card store on top of SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/knoldeck/internal/storage/migrations"
	"github.com/conorfennell/knoldeck/internal/store"
)

// ErrNotFound indicates a requested record does not exist.
var ErrNotFound = store.ErrNotFound

// maxBatch bounds the number of ids bound into a single IN clause.
const maxBatch = 500

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB represents a wrapper around the SQL database connection. Inside InTx
// the same type is handed out bound to the transaction.
type DB struct {
	conn *sqlx.DB
	ext  sqlx.ExtContext
	inTx bool
}

var _ store.Store = (*DB)(nil)

// Open creates a new database connection and ensures the schema is up to date.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", filepath.ToSlash(absPath))

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps transactions simple.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{conn: conn, ext: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InTx runs fn inside a transaction. Nested calls join the outer one.
func (db *DB) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if db.inTx {
		return fn(db)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&DB{conn: db.conn, ext: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %w)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func runMigrations(conn *sqlx.DB) error {
	driver, err := sqlite.WithInstance(conn.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// inBatches calls fn for consecutive slices of ids no longer than maxBatch
// and sums the returned row counts.
func inBatches(ids []int64, fn func(batch []int64) (int, error)) (int, error) {
	total := 0
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		n, err := fn(ids[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func execAffected(ctx context.Context, ext sqlx.ExtContext, query string, args ...any) (int, error) {
	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
