// pkg/core/position.go
package core

import "math"

// Space tags which coordinate space a Position is expressed in.
type Space int

const (
	// SpacePixel is image-pixel space. Marker storage uses it.
	SpacePixel Space = iota
	// SpaceMeter is world-meter space. All firing math uses it.
	SpaceMeter
)

func (s Space) String() string {
	switch s {
	case SpacePixel:
		return "pixel"
	case SpaceMeter:
		return "meter"
	default:
		return "unknown"
	}
}

// Position is a 2D point. Y grows southward in both spaces.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Space Space   `json:"-"`
}

// Px builds a pixel-space position.
func Px(x, y float64) Position {
	return Position{X: x, Y: y, Space: SpacePixel}
}

// M builds a meter-space position.
func M(x, y float64) Position {
	return Position{X: x, Y: y, Space: SpaceMeter}
}

// IsFinite reports whether both components are neither NaN nor infinite.
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// DistanceTo returns the Euclidean distance to q, ignoring space tags.
func (p Position) DistanceTo(q Position) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Vector is a displacement in meters.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MapDimensions pairs the pixel size of a map image with the world size it covers.
type MapDimensions struct {
	PixelWidth  float64 `json:"pixelWidth"`
	PixelHeight float64 `json:"pixelHeight"`
	MeterWidth  float64 `json:"meterWidth"`
	MeterHeight float64 `json:"meterHeight"`
}

// DefaultMapDimensions is the size every stock hex map image is rendered at.
var DefaultMapDimensions = MapDimensions{
	PixelWidth:  2048,
	PixelHeight: 1776,
	MeterWidth:  2184,
	MeterHeight: 1890,
}

// ContainsPixel reports whether p lies inside the image, edges included.
func (d MapDimensions) ContainsPixel(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= d.PixelWidth && p.Y <= d.PixelHeight
}

// ContainsMeter reports whether p lies inside the world, edges included.
func (d MapDimensions) ContainsMeter(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= d.MeterWidth && p.Y <= d.MeterHeight
}
