package plan

import (
	"encoding/json"
	"testing"

	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateLegacyPlan(t *testing.T) {
	g, tg := core.M(1, 1), core.M(2, 2)

	assert.Equal(t, []int{0}, MigrateLegacyPlan(&g, &tg))
	assert.Equal(t, []int{}, MigrateLegacyPlan(&g, nil))
	assert.Equal(t, []int{}, MigrateLegacyPlan(nil, &tg))
	assert.Equal(t, []int{}, MigrateLegacyPlan(nil, nil))
}

func TestFromRecord_LegacyJSON(t *testing.T) {
	raw := `{
		"id": "5d3c8f5e-0000-0000-0000-000000000000",
		"name": "old plan",
		"mapId": "MapDeadLandsHex.webp",
		"weaponIds": ["storm-cannon"],
		"gunPosition": {"x": 100, "y": 200},
		"targetPosition": {"x": 900, "y": 200},
		"windStrength": 0
	}`

	var rec core.PlanRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	require.True(t, rec.IsLegacy())

	m, err := FromRecord(&rec, core.DefaultMapDimensions)
	require.NoError(t, err)

	assert.Len(t, m.Guns(), 1)
	assert.Len(t, m.Targets(), 1)
	assert.Empty(t, m.Spotters())
	assert.Equal(t, []int{0}, m.Pairing())
	assert.Equal(t, "storm-cannon", m.Guns()[0].WeaponID)

	assert.Nil(t, rec.GunPosition)
	assert.Len(t, rec.GunPositions, 1)
}

func TestFromRecord_LegacyGunOnly(t *testing.T) {
	gun := core.M(10, 10)
	rec := &core.PlanRecord{GunPosition: &gun}

	m, err := FromRecord(rec, core.DefaultMapDimensions)
	require.NoError(t, err)
	assert.Equal(t, []int{none}, m.Pairing())
}

func TestFromRecord_MissingTablePairsByIndex(t *testing.T) {
	rec := &core.PlanRecord{
		GunPositions:    []core.Position{core.M(0, 0), core.M(1, 1), core.M(2, 2)},
		TargetPositions: []core.Position{core.M(9, 9), core.M(8, 8)},
	}

	m, err := FromRecord(rec, core.DefaultMapDimensions)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, none}, m.Pairing())
	assert.Equal(t, core.UnassignedWeapon, m.Guns()[2].WeaponID)
}

func TestFromRecord_RejectsDanglingPairing(t *testing.T) {
	five := 5
	rec := &core.PlanRecord{
		GunPositions:     []core.Position{core.M(0, 0)},
		TargetPositions:  []core.Position{core.M(9, 9)},
		GunTargetIndices: []*int{&five},
	}

	_, err := FromRecord(rec, core.DefaultMapDimensions)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestRecordRoundTrip(t *testing.T) {
	d := core.DefaultMapDimensions

	m := NewModel()
	m.PlaceGun(core.Px(600, 450), "storm-cannon")
	m.PlaceGun(core.Px(700, 450), "")
	m.PlaceTarget(core.Px(1200, 450))
	m.PlaceSpotter(core.Px(800, 800))
	m.SetWind(core.WindState{Direction: 90, Strength: 5})

	rec := &core.PlanRecord{ID: "abc", Name: "round trip", MapID: "MapDeadLandsHex.webp"}
	m.ApplyTo(rec, d)

	assert.Equal(t, []string{"storm-cannon", core.UnassignedWeapon}, rec.WeaponIDs)
	require.Len(t, rec.GunTargetIndices, 2)
	require.NotNil(t, rec.GunTargetIndices[0])
	assert.Equal(t, 0, *rec.GunTargetIndices[0])
	assert.Nil(t, rec.GunTargetIndices[1])
	assert.InDelta(t, 600*d.MeterWidth/d.PixelWidth, rec.GunPositions[0].X, 1e-9)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"gunTargetIndices":[0,null]`)
	assert.NotContains(t, string(data), "gunPosition\"")

	var back core.PlanRecord
	require.NoError(t, json.Unmarshal(data, &back))

	loaded, err := FromRecord(&back, d)
	require.NoError(t, err)

	want, got := m.Snapshot(), loaded.Snapshot()
	assert.Equal(t, want.Pairing, got.Pairing)
	assert.Equal(t, want.Wind, got.Wind)
	require.Len(t, got.Guns, 2)
	assert.InDelta(t, want.Guns[0].Position.X, got.Guns[0].Position.X, 1e-6)
	assert.InDelta(t, want.Guns[0].Position.Y, got.Guns[0].Position.Y, 1e-6)
	assert.Equal(t, core.UnassignedWeapon, got.Guns[1].WeaponID)
}
