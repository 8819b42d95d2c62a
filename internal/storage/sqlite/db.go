// Package sqlite implements the manifest-driven persistence engine on an
// embedded SQLite file (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/paste-harvester/internal/model"
)

const driverName = "sqlite"

// DB is a lazily opened handle to one SQLite file. It is meant for a single
// goroutine; the pool is capped at one connection.
type DB struct {
	path     string
	logger   *zap.Logger
	registry *model.Registry

	mu     sync.Mutex
	handle *sql.DB
}

// New prepares a DB for path without touching the file system.
func New(path string, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{
		path:     path,
		logger:   logger,
		registry: model.NewRegistry(),
	}
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Registry returns the manifests bound to this database.
func (d *DB) Registry() *model.Registry {
	return d.registry
}

// conn opens the database on first use.
func (d *DB) conn(ctx context.Context) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handle != nil {
		return d.handle, nil
	}
	handle, err := sql.Open(driverName, d.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", d.path, err)
	}
	handle.SetMaxOpenConns(1)
	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", d.path, err)
	}
	d.logger.Debug("opened database", zap.String("path", d.path))
	d.handle = handle
	return handle, nil
}

// Ping opens the database if needed and checks it is reachable.
func (d *DB) Ping(ctx context.Context) error {
	handle, err := d.conn(ctx)
	if err != nil {
		return err
	}
	if err := handle.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite %s: %w", d.path, err)
	}
	return nil
}

// Close releases the handle. Closing an unopened DB is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handle == nil {
		return nil
	}
	err := d.handle.Close()
	d.handle = nil
	if err != nil {
		return fmt.Errorf("close sqlite %s: %w", d.path, err)
	}
	return nil
}

func (d *DB) logStatement(query string, args []any) {
	d.logger.Debug("executing statement", zap.String("sql", query), zap.Any("args", args))
}
