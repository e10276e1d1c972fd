package geo

import (
	"encoding/json"
	"testing"

	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineString4326_TooFewPoints(t *testing.T) {
	_, err := LineString4326(core.M(0, 0))
	require.Error(t, err)
}

func TestLineString4326_Valid(t *testing.T) {
	ls, err := LineString4326(core.M(0, 0), core.M(100, 0), core.M(100, 100))
	require.NoError(t, err)
	assert.Equal(t, 3, ls.Coordinates().Length())
}

func samplePlan() *core.PlanRecord {
	return &core.PlanRecord{
		ID:               "p1",
		Name:             "Ridge",
		MapID:            "MapDeadLandsHex.webp",
		WeaponIDs:        []string{"storm-cannon", core.UnassignedWeapon},
		GunPositions:     []core.Position{core.M(100, 100), core.M(200, 100)},
		TargetPositions:  []core.Position{core.M(600, 500)},
		SpotterPositions: []core.Position{core.M(400, 400)},
	}
}

type featureJSON struct {
	Type     string `json:"type"`
	Features []struct {
		Type     string         `json:"type"`
		ID       string         `json:"id"`
		Geometry map[string]any `json:"geometry"`
		Props    map[string]any `json:"properties"`
	} `json:"features"`
}

func TestPlanFeatures(t *testing.T) {
	rec := samplePlan()
	lines := []FiringLine{
		{Gun: 0, Target: 0, Solution: core.FiringSolution{Azimuth: 135, Distance: 565.7, InRange: true}},
		{Gun: 1, Target: 3}, // dangling, skipped
	}

	raw, err := json.Marshal(PlanFeatures(rec, lines))
	require.NoError(t, err)

	var fc featureJSON
	require.NoError(t, json.Unmarshal(raw, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 5)

	gun := fc.Features[0]
	assert.Equal(t, "gun-0", gun.ID)
	assert.Equal(t, "Point", gun.Geometry["type"])
	assert.Equal(t, "storm-cannon", gun.Props["weaponId"])

	assert.Equal(t, "target-0", fc.Features[2].ID)
	assert.Equal(t, "spotter-0", fc.Features[3].ID)

	line := fc.Features[4]
	assert.Equal(t, "firing-0", line.ID)
	assert.Equal(t, "LineString", line.Geometry["type"])
	assert.Equal(t, 135.0, line.Props["azimuth"])
	assert.Equal(t, true, line.Props["inRange"])
	assert.NotContains(t, line.Props, "aimAzimuth")
}

func TestPlanFeatures_WindAim(t *testing.T) {
	rec := samplePlan()
	lines := []FiringLine{{
		Gun: 0, Target: 0,
		Solution: core.FiringSolution{
			Azimuth: 135,
			Wind:    &core.WindCorrection{Azimuth: 130, Distance: 540},
		},
	}}

	raw, err := json.Marshal(PlanFeatures(rec, lines))
	require.NoError(t, err)

	var fc featureJSON
	require.NoError(t, json.Unmarshal(raw, &fc))
	line := fc.Features[len(fc.Features)-1]
	assert.Equal(t, 130.0, line.Props["aimAzimuth"])
	assert.Equal(t, 540.0, line.Props["aimDistance"])
}

func TestPlanFeatures_Empty(t *testing.T) {
	raw, err := json.Marshal(PlanFeatures(&core.PlanRecord{}, nil))
	require.NoError(t, err)

	var fc featureJSON
	require.NoError(t, json.Unmarshal(raw, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Empty(t, fc.Features)
}
