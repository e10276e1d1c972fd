package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Sizer   = (*Backend)(nil)
)

func TestInitAndClose_NoDump(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "second close is a no-op")
}

func TestSizeBytes(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	size, err := b.SizeBytes(context.Background())
	require.NoError(t, err)
	assert.Positive(t, size)
}

func TestCloseDumpsAndInitRestores(t *testing.T) {
	ctx := context.Background()
	dump := filepath.Join(t.TempDir(), "plans.db")
	idx := 0

	first, err := New(Config{DumpPath: dump, DumpInterval: time.Hour}, nil)
	require.NoError(t, err)
	require.NoError(t, first.Init())
	require.NoError(t, first.SavePlan(ctx, &core.PlanRecord{
		ID:               "p1",
		Name:             "Ridge",
		MapID:            "MapDeadLandsHex.webp",
		WeaponIDs:        []string{"storm-cannon"},
		GunPositions:     []core.Position{core.M(10, 20)},
		TargetPositions:  []core.Position{core.M(500, 400)},
		GunTargetIndices: []*int{&idx},
	}))
	require.NoError(t, first.RecordPlacements(ctx, []core.PlacementCount{{Kind: core.KindTarget, Count: 2}}))
	require.NoError(t, first.Close())

	_, err = os.Stat(dump)
	require.NoError(t, err)

	second, err := New(Config{DumpPath: dump}, nil)
	require.NoError(t, err)
	require.NoError(t, second.Init())
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.GetPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Ridge", got.Name)
	assert.Equal(t, []core.Position{core.M(10, 20)}, got.GunPositions)
	require.Len(t, got.GunTargetIndices, 1)
	assert.Equal(t, 0, *got.GunTargetIndices[0])

	counts, err := second.PlacementCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.PlacementCount{{Kind: core.KindTarget, Count: 2}}, counts)
}

func TestDumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "loop.db")
	b, err := New(Config{DumpPath: dump, DumpInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
