package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nfrund/taskmanager/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

const (
	healthInterval = 30 * time.Second
	healthTimeout  = 5 * time.Second
)

// Connection owns the SurrealDB session behind the task store. Operations that
// fail with a transport error reconnect with backoff and run again.
type Connection struct {
	cfg   config.Provider
	retry backoff
	every time.Duration

	mu      sync.RWMutex
	db      *surrealdb.DB
	healthy bool
	closed  bool
	stop    chan struct{}
}

// NewConnection prepares a connection; nothing is dialed until Connect.
func NewConnection(cfg config.Provider) *Connection {
	return &Connection{
		cfg:   cfg,
		retry: defaultBackoff(),
		every: healthInterval,
		stop:  make(chan struct{}),
	}
}

// Connect dials, signs in and selects the namespace and database. Calling it
// on an open connection does nothing.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}
	return c.redial(ctx)
}

// WithConnection runs fn on the current session. Query errors are returned
// as they are; transport errors trigger a reconnect and another try.
func (c *Connection) WithConnection(ctx context.Context, fn func(*surrealdb.DB) error) error {
	db := c.current()
	if db == nil {
		return NewDBError(ErrNotConnected, "database not connected")
	}

	err := fn(db)
	if err == nil || !isConnectionError(err) {
		return err
	}

	slog.WarnContext(ctx, "Lost the database connection, reconnecting", "event", "db_reconnect_triggered", "error", err, "db_url", redactDBURL(c.cfg.GetDBURL()))
	return c.retry.retry(ctx, func() error {
		if rerr := c.reconnect(ctx); rerr != nil {
			return errors.Join(rerr, err)
		}
		return fn(c.current())
	})
}

// StartMonitoring pings the server periodically and reconnects when it stops
// answering. It runs until Close.
func (c *Connection) StartMonitoring() {
	go func() {
		ticker := time.NewTicker(c.every)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.heal()
			}
		}
	}()
}

// Close ends the session and the monitor. Further calls are no-ops.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy = false
	close(c.stop)

	if c.db == nil {
		return nil
	}
	err := c.db.Close(ctx)
	c.db = nil
	return err
}

// IsHealthy reports the result of the last health check or connect.
func (c *Connection) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// Ping asks the server for its version and records the outcome.
func (c *Connection) Ping(ctx context.Context) error {
	db := c.current()
	if db == nil {
		c.markHealthy(false)
		return NewDBError(ErrNotConnected, "no active database connection")
	}
	if _, err := db.Version(ctx); err != nil {
		c.markHealthy(false)
		return fmt.Errorf("pinging %s: %w", redactDBURL(c.cfg.GetDBURL()), err)
	}
	c.markHealthy(true)
	return nil
}

func (c *Connection) heal() {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	err := c.Ping(ctx)
	if err == nil {
		return
	}
	slog.WarnContext(ctx, "Database health check failed", "event", "db_health_check_failure", "error", err)
	if err := c.retry.retry(ctx, func() error { return c.reconnect(ctx) }); err != nil {
		slog.ErrorContext(ctx, "Could not reconnect to the database", "event", "db_reconnect_failure", "error", err)
	}
}

func (c *Connection) current() *surrealdb.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Connection) markHealthy(ok bool) {
	c.mu.Lock()
	c.healthy = ok
	c.mu.Unlock()
}

func (c *Connection) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return NewDBError(ErrNotConnected, "connection closed")
	}
	return c.redial(ctx)
}

// redial replaces the session. c.mu must be held.
func (c *Connection) redial(ctx context.Context) error {
	if c.db != nil {
		_ = c.db.Close(ctx)
		c.db = nil
	}
	c.healthy = false

	db, err := c.dial(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Database connection failed", "event", "db_connect_failure", "db_url", redactDBURL(c.cfg.GetDBURL()), "error", err)
		return err
	}

	c.db = db
	c.healthy = true
	slog.InfoContext(ctx, "Database connection established", "event", "db_connect_success",
		"db_url", redactDBURL(c.cfg.GetDBURL()),
		"namespace", c.cfg.GetDBNs(),
		"database", c.cfg.GetDBDb(),
	)
	return nil
}

func (c *Connection) dial(ctx context.Context) (*surrealdb.DB, error) {
	dbURL := c.cfg.GetDBURL()
	db, err := surrealdb.FromEndpointURLString(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", redactDBURL(dbURL), err)
	}

	if _, err := db.SignIn(ctx, &surrealdb.Auth{Username: c.cfg.GetDBUser(), Password: c.cfg.GetDBPass()}); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("signing in as %q: %w", c.cfg.GetDBUser(), err)
	}
	if err := db.Use(ctx, c.cfg.GetDBNs(), c.cfg.GetDBDb()); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("selecting %s/%s: %w", c.cfg.GetDBNs(), c.cfg.GetDBDb(), err)
	}
	return db, nil
}

// isConnectionError reports whether err looks like a dropped transport rather
// than a failed query. Context errors are never retried.
func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "unexpected eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// redactDBURL hides any password in dbURL so it can be logged.
func redactDBURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
