package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/foxholetools/artyplanner/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSqliteDB_InMemoryIsPrivate(t *testing.T) {
	a, err := GetSqliteDB("")
	require.NoError(t, err)
	b, err := GetSqliteDB("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a))
	require.NoError(t, a.Create(&model.PlacementStat{Kind: "gun", WeaponID: "x", Count: 1}).Error)

	assert.False(t, b.Migrator().HasTable(&model.PlacementStat{}))
}

func TestMigrate_CreatesTables(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Plan{ID: "p1", Name: "Ridge", MapID: "m"}).Error)

	path := filepath.Join(t.TempDir(), "it's.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// a second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	_, err = os.Stat(path)
	require.NoError(t, err)

	disk, err := GetSqliteDB(path)
	require.NoError(t, err)
	var plan model.Plan
	require.NoError(t, disk.First(&plan, "id = ?", "p1").Error)
	assert.Equal(t, "Ridge", plan.Name)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestManager_FallsBackToSQLite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.database", "none")

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "fallback.db"))
	require.NoError(t, m.Connect())
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup())
	require.NoError(t, m.DumpMemoryToDisk())

	_, err := os.Stat(m.SqliteFilePath)
	assert.NoError(t, err)
}
