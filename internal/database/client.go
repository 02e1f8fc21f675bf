package database

import (
	"context"
	"time"

	"github.com/nfrund/taskmanager/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// Client is a typed query client bound to one record shape T.
// Every call runs through the managed connection and carries a deadline.
type Client[T any] struct {
	conn           *Connection
	queryTimeout   time.Duration
	executeTimeout time.Duration
}

// NewClient creates a new type-safe database client
func NewClient[T any](conn *Connection, cfg config.Provider) (*Client[T], error) {
	if conn == nil {
		return nil, NewDBError(ErrInvalidInput, "connection cannot be nil")
	}
	if cfg == nil {
		return nil, NewDBError(ErrInvalidInput, "config provider cannot be nil")
	}

	queryTimeout := cfg.GetDBQueryTimeout()
	if queryTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_QUERY_TIMEOUT must be a positive duration")
	}
	executeTimeout := cfg.GetDBExecuteTimeout()
	if executeTimeout <= 0 {
		return nil, NewDBError(ErrInvalidInput, "DB_EXECUTE_TIMEOUT must be a positive duration")
	}

	return &Client[T]{
		conn:           conn,
		queryTimeout:   queryTimeout,
		executeTimeout: executeTimeout,
	}, nil
}

// Query returns every row of the statement's first result set.
func (c *Client[T]) Query(ctx context.Context, query string, params map[string]any) ([]T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	var out []T
	err := c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		out, err = Query[T](ctx, db, query, params)
		return err
	})
	return out, err
}

// QueryOne returns the first row, or nil when the statement matched nothing.
func (c *Client[T]) QueryOne(ctx context.Context, query string, params map[string]any) (*T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.queryTimeout, ContextKeyQueryTimeout)
	defer cancel()

	var out *T
	err := c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		out, err = QueryOne[T](ctx, db, query, params)
		return err
	})
	return out, err
}

// Mutate runs a write statement and returns its first row, using the write timeout.
func (c *Client[T]) Mutate(ctx context.Context, query string, params map[string]any) (*T, error) {
	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	var out *T
	err := c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		var err error
		out, err = QueryOne[T](ctx, db, query, params)
		return err
	})
	return out, err
}

// Execute runs a write statement and discards its rows.
func (c *Client[T]) Execute(ctx context.Context, query string, params map[string]any) error {
	ctx, cancel := getTimeoutFromContext(ctx, c.executeTimeout, ContextKeyExecuteTimeout)
	defer cancel()

	return c.conn.WithConnection(ctx, func(db *surrealdb.DB) error {
		return Execute(ctx, db, query, params)
	})
}
