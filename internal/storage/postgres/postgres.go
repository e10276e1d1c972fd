// Package postgres implements the storage.Backend interface on PostgreSQL.
// When Postgres is unreachable it keeps working on in-memory SQLite and
// dumps that to a local file on close.
package postgres

import (
	"context"
	"fmt"

	"github.com/foxholetools/artyplanner/internal/database"
	"github.com/foxholetools/artyplanner/internal/logging"
	gormstore "github.com/foxholetools/artyplanner/internal/storage/gormstore"

	"github.com/rs/zerolog"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	LogManager *logging.SlogManager
	Logger     zerolog.Logger
	// FallbackPath receives the SQLite dump when running without Postgres.
	FallbackPath string
}

// Backend wraps the GORM backend around a database.Manager connection.
type Backend struct {
	*gormstore.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend. It connects in Init.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects, falling back to SQLite, and migrates the schema.
func (b *Backend) Init() error {
	b.manager = database.NewManager(b.deps.Logger, b.deps.FallbackPath)
	if err := b.manager.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	b.Backend = gormstore.New(gormstore.Dependencies{
		DB:         b.manager.DB,
		LogManager: b.deps.LogManager,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}

// Fallback reports whether the backend is running on local SQLite.
func (b *Backend) Fallback() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}

// Close dumps the fallback database if in use, then closes the connection.
func (b *Backend) Close() error {
	if b.manager == nil {
		return nil
	}
	if b.Fallback() && b.manager.SqliteFilePath != "" {
		if err := b.manager.DumpMemoryToDisk(); err != nil {
			b.deps.Logger.Error().Err(err).Msg("Failed to dump fallback DB")
		}
	}
	return b.manager.Close()
}

// SizeBytes reports the database size as the server sees it.
func (b *Backend) SizeBytes(ctx context.Context) (int64, error) {
	if b.manager == nil {
		return 0, fmt.Errorf("database not initialized")
	}
	db := b.manager.DB.WithContext(ctx)

	var size int64
	if b.Fallback() {
		err := db.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size();").Scan(&size).Error
		return size, err
	}
	err := db.Raw("SELECT pg_database_size(current_database());").Scan(&size).Error
	return size, err
}
