// Package store defines the aggregate persistence interface. The document
// and job subsystems each define their own store interface; the composite
// Store composes them both. Backends: Memory, Postgres, SQLite, and Redis.
package store

import (
	"context"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/job"
)

// Store is the aggregate persistence interface. A single backend
// implements both subsystem stores plus lifecycle management.
type Store interface {
	document.Store
	job.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
