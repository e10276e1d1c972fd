package validate

import (
	"math"
	"strings"
	"testing"

	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	weapons map[string]core.WeaponSpec
	maps    map[string]core.MapSpec
}

func (c stubCatalog) Weapon(id string) (core.WeaponSpec, bool) {
	w, ok := c.weapons[id]
	return w, ok
}

func (c stubCatalog) Map(id string) (core.MapSpec, bool) {
	m, ok := c.maps[id]
	return m, ok
}

func newStubCatalog() stubCatalog {
	return stubCatalog{
		weapons: map[string]core.WeaponSpec{
			"storm-cannon": {ID: "storm-cannon", MinRange: 400, MaxRange: 1000},
		},
		maps: map[string]core.MapSpec{
			"MapDeadLandsHex.webp": {ID: "MapDeadLandsHex.webp", Dimensions: core.DefaultMapDimensions},
		},
	}
}

func intPtr(i int) *int { return &i }

func TestPixelPosition(t *testing.T) {
	d := core.DefaultMapDimensions

	assert.NoError(t, PixelPosition(core.Px(0, 0), d))
	assert.NoError(t, PixelPosition(core.Px(2048, 1776), d))

	for _, p := range []core.Position{
		core.Px(math.NaN(), 0),
		core.Px(0, math.Inf(1)),
		core.Px(-1, 0),
		core.Px(0, 1777),
	} {
		err := PixelPosition(p, d)
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	}
}

func TestMeterPosition(t *testing.T) {
	d := core.DefaultMapDimensions
	assert.NoError(t, MeterPosition(core.M(2184, 1890), d))
	assert.ErrorIs(t, MeterPosition(core.M(2185, 0), d), ErrInvalidGeometry)
	assert.ErrorIs(t, MeterPosition(core.M(math.NaN(), 0), d), ErrInvalidGeometry)
}

func TestWind(t *testing.T) {
	tests := []struct {
		name string
		wind core.WindState
		ok   bool
	}{
		{"calm", core.WindState{}, true},
		{"max", core.WindState{Direction: 359.99, Strength: 5}, true},
		{"direction 360", core.WindState{Direction: 360, Strength: 1}, false},
		{"negative direction", core.WindState{Direction: -0.1, Strength: 1}, false},
		{"nan direction", core.WindState{Direction: math.NaN()}, false},
		{"strength 6", core.WindState{Direction: 10, Strength: 6}, false},
		{"negative strength", core.WindState{Direction: 10, Strength: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wind(tt.wind)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRange)
			}
		})
	}
}

func TestPlanName(t *testing.T) {
	assert.NoError(t, PlanName(""))
	assert.NoError(t, PlanName(strings.Repeat("é", MaxPlanNameLength)))
	assert.ErrorIs(t, PlanName(strings.Repeat("a", MaxPlanNameLength+1)), ErrInvalidRange)
}

func TestWeaponID(t *testing.T) {
	cat := newStubCatalog()
	assert.NoError(t, WeaponID(cat, ""))
	assert.NoError(t, WeaponID(cat, core.UnassignedWeapon))
	assert.NoError(t, WeaponID(cat, "storm-cannon"))
	assert.ErrorIs(t, WeaponID(cat, "nope"), ErrInvalidReference)

	_, err := RequiredWeapon(cat, core.UnassignedWeapon)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestIndex(t *testing.T) {
	assert.NoError(t, Index(core.KindGun, 0, 1))
	assert.ErrorIs(t, Index(core.KindGun, 1, 1), ErrInvalidReference)
	assert.ErrorIs(t, Index(core.KindTarget, -1, 3), ErrInvalidReference)
}

func TestPlanRecord(t *testing.T) {
	cat := newStubCatalog()
	dir := 90.0

	valid := func() *core.PlanRecord {
		return &core.PlanRecord{
			Name:             "Push on Callahan's Gate",
			MapID:            "MapDeadLandsHex.webp",
			WeaponIDs:        []string{"storm-cannon", core.UnassignedWeapon},
			GunPositions:     []core.Position{core.M(100, 100), core.M(200, 200)},
			TargetPositions:  []core.Position{core.M(900, 100)},
			GunTargetIndices: []*int{intPtr(0), nil},
			WindDirection:    &dir,
			WindStrength:     3,
		}
	}

	require.NoError(t, PlanRecord(cat, valid()))

	tests := []struct {
		name   string
		mutate func(r *core.PlanRecord)
		want   error
	}{
		{"unknown map", func(r *core.PlanRecord) { r.MapID = "MapNowhere.webp" }, ErrInvalidReference},
		{"unknown weapon", func(r *core.PlanRecord) { r.WeaponIDs[0] = "pea-shooter" }, ErrInvalidReference},
		{"pairing out of range", func(r *core.PlanRecord) { r.GunTargetIndices[1] = intPtr(1) }, ErrInvalidReference},
		{"negative pairing", func(r *core.PlanRecord) { r.GunTargetIndices[0] = intPtr(-1) }, ErrInvalidReference},
		{"too many pairings", func(r *core.PlanRecord) { r.GunTargetIndices = append(r.GunTargetIndices, nil) }, ErrInvalidReference},
		{"off-map target", func(r *core.PlanRecord) { r.TargetPositions[0] = core.M(5000, 0) }, ErrInvalidGeometry},
		{"strong wind", func(r *core.PlanRecord) { r.WindStrength = 9 }, ErrInvalidRange},
		{"strong wind without direction", func(r *core.PlanRecord) { r.WindDirection = nil; r.WindStrength = 9 }, ErrInvalidRange},
		{"long name", func(r *core.PlanRecord) { r.Name = strings.Repeat("x", 201) }, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			assert.ErrorIs(t, PlanRecord(cat, rec), tt.want)
		})
	}
}
