// Package store keeps candidate pairs and clustering labels in a SQL
// database. SQLite (pure Go) is the default; MySQL-compatible servers are
// supported through the same schema.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver.
	_ "modernc.org/sqlite"             // Pure-Go SQLite driver.

	"github.com/papapumpkin/coalesce/internal/cluster"
	"github.com/papapumpkin/coalesce/internal/pairs"
)

// Supported driver names.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// ErrUnknownDriver is returned by Open for a driver other than DriverSQLite
// or DriverMySQL.
var ErrUnknownDriver = errors.New("store: unknown driver")

// schemas holds the DDL per driver, one statement per entry. Every
// statement is idempotent so it runs on each open.
var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS pairs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    a  INTEGER NOT NULL,
    b  INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS meta (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS labels (
    run_id     TEXT NOT NULL,
    element    INTEGER NOT NULL,
    root       INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (run_id, element)
)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS pairs (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    a  BIGINT NOT NULL,
    b  BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS meta (
    name  VARCHAR(64) PRIMARY KEY,
    value BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS labels (
    run_id     VARCHAR(64) NOT NULL,
    element    BIGINT NOT NULL,
    root       BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (run_id, element)
)`,
	},
}

// Store is a SQL-backed pair source and label sink.
type Store struct {
	db     *sql.DB
	driver string
}

var _ pairs.Source = (*Store)(nil)

// Open connects to the database, applies driver-specific settings, and
// creates the schema if it does not exist.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	ddl, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite has a single writer; one connection keeps the PRAGMAs
		// below in effect for every statement.
		db.SetMaxOpenConns(1)

		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: enable WAL mode: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set busy timeout: %w", err)
		}
	}

	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: create schema: %w", err)
		}
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns every stored pair in insertion order along with the stored
// size, if any.
func (s *Store) Load(ctx context.Context) (pairs.Input, error) {
	var in pairs.Input

	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE name = 'size'").Scan(&in.Size)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return pairs.Input{}, fmt.Errorf("store: read size: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT a, b FROM pairs ORDER BY id")
	if err != nil {
		return pairs.Input{}, fmt.Errorf("store: query pairs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p cluster.Pair
		if err := rows.Scan(&p.A, &p.B); err != nil {
			return pairs.Input{}, fmt.Errorf("store: scan pair: %w", err)
		}
		in.Pairs = append(in.Pairs, p)
	}
	if err := rows.Err(); err != nil {
		return pairs.Input{}, fmt.Errorf("store: iterate pairs: %w", err)
	}
	return in, nil
}

// AddPairs appends pairs in a single transaction.
func (s *Store) AddPairs(ctx context.Context, ps []cluster.Pair) error {
	if len(ps) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO pairs (a, b) VALUES (?, ?)")
		if err != nil {
			return fmt.Errorf("store: prepare insert pair: %w", err)
		}
		defer stmt.Close()

		for _, p := range ps {
			if _, err := stmt.ExecContext(ctx, p.A, p.B); err != nil {
				return fmt.Errorf("store: insert pair (%d, %d): %w", p.A, p.B, err)
			}
		}
		return nil
	})
}

// SetSize records the element count returned by Load.
func (s *Store) SetSize(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("store: invalid size %d", n)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM meta WHERE name = 'size'"); err != nil {
			return fmt.Errorf("store: clear size: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (name, value) VALUES ('size', ?)", n); err != nil {
			return fmt.Errorf("store: set size: %w", err)
		}
		return nil
	})
}

// SaveLabels stores parents as the labels of runID, replacing any labels
// previously saved under the same run.
func (s *Store) SaveLabels(ctx context.Context, runID string, parents []int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM labels WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("store: clear labels for %q: %w", runID, err)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO labels (run_id, element, root) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("store: prepare insert label: %w", err)
		}
		defer stmt.Close()

		for element, root := range parents {
			if _, err := stmt.ExecContext(ctx, runID, element, root); err != nil {
				return fmt.Errorf("store: insert label %d: %w", element, err)
			}
		}
		return nil
	})
}

// Labels returns the labels saved for runID indexed by element, or nil if
// the run has none.
func (s *Store) Labels(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT element, root FROM labels WHERE run_id = ? ORDER BY element", runID)
	if err != nil {
		return nil, fmt.Errorf("store: query labels for %q: %w", runID, err)
	}
	defer rows.Close()

	var labels []int
	for rows.Next() {
		var element, root int
		if err := rows.Scan(&element, &root); err != nil {
			return nil, fmt.Errorf("store: scan label: %w", err)
		}
		if element != len(labels) {
			return nil, fmt.Errorf("store: run %q: labels not contiguous at element %d", runID, element)
		}
		labels = append(labels, root)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate labels: %w", err)
	}
	return labels, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
