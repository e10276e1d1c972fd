package main

import (
	"fmt"
	"path/filepath"

	"github.com/foxholetools/artyplanner/internal/config"
	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/internal/storage/memory"
	pgstorage "github.com/foxholetools/artyplanner/internal/storage/postgres"
	sqlitestorage "github.com/foxholetools/artyplanner/internal/storage/sqlite"
)

// openStorage creates and initializes the configured backend.
func openStorage(storageCfg config.StorageConfig) (storage.Backend, error) {
	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err, "type", storageCfg.Type)
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	if pg, ok := backend.(*pgstorage.Backend); ok && pg.Fallback() {
		Logger.Warn("Postgres unreachable, plans are kept in memory SQLite until shutdown")
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		fallbackPath := filepath.Join(
			filepath.Dir(storageCfg.SQLite.Path),
			fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")),
		)
		Logger.Info("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Dependencies{
			LogManager:   SlogManager,
			Logger:       componentLogger("database"),
			FallbackPath: fallbackPath,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.Path,
		}, SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend selected", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "memory", "":
		Logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
