package geo

import (
	"errors"

	"github.com/foxholetools/artyplanner/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Plan markers are stored as 3857 points: world meters are treated as offsets
// from the projection origin with north up, so the map's southward Y is negated.
// SQLite has no spatial awareness, so geometry is kept in WKB and read back with
// the inherent Scan function.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromPosition converts a world-meter position into a 3857 point.
func PointFromPosition(p core.Position) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: -p.Y},
			Type: geom.DimXY,
		},
	)
}

// PositionFromPoint is the inverse of PointFromPosition.
func PositionFromPoint(pt geom.Point) (core.Position, error) {
	coords, ok := pt.Coordinates()
	if !ok {
		return core.Position{}, ErrInvalidCoordinates
	}
	p := core.M(coords.XY.X, -coords.XY.Y)
	if !p.IsFinite() {
		return core.Position{}, ErrInvalidCoordinates
	}
	return p, nil
}

// LonLat projects a world-meter position to 4326 longitude and latitude.
func LonLat(p core.Position) (lon, lat float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ = f(p.X, -p.Y, 0)
	return lon, lat
}

// Point4326 returns p as a 4326 point, ready for GeoJSON output.
func Point4326(p core.Position) geom.Point {
	lon, lat := LonLat(p)
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: lon, Y: lat},
			Type: geom.DimXY,
		},
	)
}
