// Package ballistics computes firing solutions between a gun and a target in world meters.
//
// Coordinates follow the map image: X grows east, Y grows south. Azimuths are
// compass bearings, clockwise from north, in [0, 360).
package ballistics

import (
	"math"

	"github.com/foxholetools/artyplanner/pkg/core"
)

// MaxWindStrength is the highest wind level the in-game flag shows.
const MaxWindStrength = 5

// Azimuth returns the compass bearing from gun to target.
// Identical points give atan2(0, -0), i.e. 180.
func Azimuth(gun, target core.Position) float64 {
	dx := target.X - gun.X
	dy := target.Y - gun.Y
	return normalizeDegrees(math.Atan2(dx, -dy) * 180 / math.Pi)
}

// Distance returns the Euclidean distance between gun and target.
func Distance(gun, target core.Position) float64 {
	return math.Hypot(target.X-gun.X, target.Y-gun.Y)
}

// RangeFraction maps a distance onto the weapon's range band as t in [0, 1].
// A zero-width band yields 0.
func RangeFraction(w core.WeaponSpec, distance float64) float64 {
	span := w.MaxRange - w.MinRange
	if span == 0 {
		return 0
	}
	return clamp01((distance - w.MinRange) / span)
}

// AccuracyRadius interpolates the weapon's dispersion radius at distance.
func AccuracyRadius(w core.WeaponSpec, distance float64) float64 {
	return lerp(w.AccRadius, RangeFraction(w, distance))
}

// InRange reports whether distance lies within the weapon's range band, edges included.
func InRange(w core.WeaponSpec, distance float64) bool {
	return distance >= w.MinRange && distance <= w.MaxRange
}

// WindDrift returns how far, in meters, wind pushes a shell fired over distance.
func WindDrift(w core.WeaponSpec, distance float64, wind core.WindState) float64 {
	return lerp(w.WindDrift, RangeFraction(w, distance)) * float64(wind.Strength) / MaxWindStrength
}

// PushDirection converts the direction wind blows from into the direction it pushes toward.
func PushDirection(wind core.WindState) float64 {
	return math.Mod(wind.Direction+180, 360)
}

// WindOffset is the displacement a shell experiences when pushed drift meters toward push degrees.
func WindOffset(push, drift float64) core.Vector {
	rad := push * math.Pi / 180
	return core.Vector{
		X: math.Sin(rad) * drift,
		Y: -math.Cos(rad) * drift,
	}
}

// Solve computes the full firing solution. Inputs are assumed validated:
// finite meter positions and wind strength within 0..MaxWindStrength.
func Solve(gun, target core.Position, w core.WeaponSpec, wind core.WindState) core.FiringSolution {
	dist := Distance(gun, target)
	sol := core.FiringSolution{
		Azimuth:        Azimuth(gun, target),
		Distance:       dist,
		InRange:        InRange(w, dist),
		AccuracyRadius: AccuracyRadius(w, dist),
		RangeFraction:  RangeFraction(w, dist),
	}

	if wind.Strength <= 0 {
		return sol
	}

	push := PushDirection(wind)
	drift := WindDrift(w, dist, wind)
	offset := WindOffset(push, drift)
	aim := core.Position{
		X:     target.X - offset.X,
		Y:     target.Y - offset.Y,
		Space: core.SpaceMeter,
	}

	sol.Wind = &core.WindCorrection{
		PushDirection: push,
		DriftMeters:   drift,
		Offset:        offset,
		Aim:           aim,
		Azimuth:       Azimuth(gun, aim),
		Distance:      Distance(gun, aim),
	}
	return sol
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -0 and values that round up to 360 after the shift
	if deg >= 360 || deg == 0 {
		return 0
	}
	return deg
}

func lerp(ends [2]float64, t float64) float64 {
	return ends[0] + t*(ends[1]-ends[0])
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
