// Package sqlite stores tasks in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeout is how long a connection waits on a lock held by another
// process, such as the CLI importing while the server runs.
const busyTimeout = 5 * time.Second

// dsn builds the go-sqlite3 connection string for the database file at path.
func dsn(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty database path")
	}
	if strings.ContainsAny(path, "?#") {
		return "", fmt.Errorf("database path %q must not contain '?' or '#'", path)
	}

	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	params.Set("_journal_mode", "WAL")
	// Write transactions take the lock up front instead of failing on upgrade.
	params.Set("_txlock", "immediate")
	return "file:" + path + "?" + params.Encode(), nil
}

// Open opens the database at path, creating the file if needed, and checks
// that it can be used. A single connection serializes every write.
func Open(path string) (*sql.DB, error) {
	source, err := dsn(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", source)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return db, nil
}

// WithTx runs fn in a transaction, committing if it returns nil and rolling
// back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// timestamp is the time stored in created_at and updated_at.
func timestamp() time.Time {
	return time.Now().UTC()
}
