// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are creating the
// in-memory DB, restoring the last dump on start, and the periodic dump itself.
package sqlitestorage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/foxholetools/artyplanner/internal/database"
	"github.com/foxholetools/artyplanner/internal/logging"
	"github.com/foxholetools/artyplanner/internal/model"
	gormstore "github.com/foxholetools/artyplanner/internal/storage/gormstore"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
	db        *gorm.DB
	cfg       Config
	log       *logging.SlogManager
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	return &Backend{
		Backend: gormstore.New(gormstore.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, restores the last dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if err := b.restore(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		if b.cfg.DumpPath != "" {
			err = b.Dump()
		}
		if sqlDB, dbErr := b.db.DB(); dbErr == nil {
			err = errors.Join(err, sqlDB.Close())
		}
	})
	return err
}

// Dump writes a point-in-time snapshot to DumpPath.
func (b *Backend) Dump() error {
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// SizeBytes reports the size of the in-memory database.
func (b *Backend) SizeBytes(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := b.db.WithContext(ctx).Raw("PRAGMA page_count;").Scan(&pageCount).Error; err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	if err := b.db.WithContext(ctx).Raw("PRAGMA page_size;").Scan(&pageSize).Error; err != nil {
		return 0, fmt.Errorf("failed to read page size: %w", err)
	}
	return pageCount * pageSize, nil
}

// restore copies every table of an existing dump into the fresh in-memory DB.
func (b *Backend) restore() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	start := time.Now()
	path := strings.ReplaceAll(b.cfg.DumpPath, "'", "''")
	err := b.db.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("ATTACH DATABASE '" + path + "' AS dump;").Error; err != nil {
			return fmt.Errorf("failed to attach dump: %w", err)
		}
		defer conn.Exec("DETACH DATABASE dump;")

		for _, m := range model.DatabaseModels {
			table := m.(interface{ TableName() string }).TableName()
			if err := conn.Exec("INSERT OR REPLACE INTO main." + table + " SELECT * FROM dump." + table + ";").Error; err != nil {
				return fmt.Errorf("failed to restore %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		b.log.WriteLog("sqlite:restore", fmt.Sprintf("Error restoring %s: %v", b.cfg.DumpPath, err), "ERROR")
		return err
	}
	b.log.WriteLog("sqlite:restore", fmt.Sprintf("Restored %s in %s", b.cfg.DumpPath, time.Since(start)), "INFO")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
