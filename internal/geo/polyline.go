package geo

import (
	"fmt"

	"github.com/foxholetools/artyplanner/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// FiringLine links a gun to the target it is paired with.
type FiringLine struct {
	Gun      int
	Target   int
	Solution core.FiringSolution
}

// LineString4326 builds a 4326 line through the given world-meter positions.
func LineString4326(positions ...core.Position) (geom.LineString, error) {
	if len(positions) < 2 {
		return geom.LineString{}, fmt.Errorf("line must have at least 2 points, got %d", len(positions))
	}

	flatCoords := make([]float64, 0, len(positions)*2)
	for _, p := range positions {
		lon, lat := LonLat(p)
		flatCoords = append(flatCoords, lon, lat)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// PlanFeatures renders a plan as a GeoJSON feature collection: one point per
// marker and one line per paired gun. Lines referencing missing markers are skipped.
func PlanFeatures(rec *core.PlanRecord, lines []FiringLine) geom.GeoJSONFeatureCollection {
	fc := geom.GeoJSONFeatureCollection{}

	addPoints := func(kind core.MarkerKind, positions []core.Position) {
		for i, p := range positions {
			props := map[string]interface{}{
				"kind":  kind.String(),
				"index": i,
			}
			if kind == core.KindGun && i < len(rec.WeaponIDs) {
				props["weaponId"] = rec.WeaponIDs[i]
			}
			fc = append(fc, geom.GeoJSONFeature{
				Geometry:   Point4326(p).AsGeometry(),
				ID:         fmt.Sprintf("%s-%d", kind, i),
				Properties: props,
			})
		}
	}
	addPoints(core.KindGun, rec.GunPositions)
	addPoints(core.KindTarget, rec.TargetPositions)
	addPoints(core.KindSpotter, rec.SpotterPositions)

	for _, l := range lines {
		if l.Gun < 0 || l.Gun >= len(rec.GunPositions) || l.Target < 0 || l.Target >= len(rec.TargetPositions) {
			continue
		}
		ls, err := LineString4326(rec.GunPositions[l.Gun], rec.TargetPositions[l.Target])
		if err != nil {
			continue
		}
		props := map[string]interface{}{
			"kind":     "firing",
			"gun":      l.Gun,
			"target":   l.Target,
			"azimuth":  l.Solution.Azimuth,
			"distance": l.Solution.Distance,
			"inRange":  l.Solution.InRange,
		}
		if l.Solution.Wind != nil {
			props["aimAzimuth"] = l.Solution.Wind.Azimuth
			props["aimDistance"] = l.Solution.Wind.Distance
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry:   ls.AsGeometry(),
			ID:         fmt.Sprintf("firing-%d", l.Gun),
			Properties: props,
		})
	}
	return fc
}
