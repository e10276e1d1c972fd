// Package validate holds the boundary checks run before input reaches the
// calculator or the marker model. Every rejection wraps one of the sentinel
// errors below so callers can map it with errors.Is.
package validate

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/foxholetools/artyplanner/internal/ballistics"
	"github.com/foxholetools/artyplanner/pkg/core"
)

var (
	// ErrInvalidGeometry is returned for non-finite or out-of-bounds coordinates.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidReference is returned for unknown weapons, maps or marker indices.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidRange is returned for values outside their allowed range.
	ErrInvalidRange = errors.New("invalid range")
)

// MaxPlanNameLength is the longest plan name accepted, in characters.
const MaxPlanNameLength = 200

// Catalog is the lookup surface validation needs.
type Catalog interface {
	Weapon(id string) (core.WeaponSpec, bool)
	Map(id string) (core.MapSpec, bool)
}

// PixelPosition checks p is finite and inside the image.
func PixelPosition(p core.Position, d core.MapDimensions) error {
	if !p.IsFinite() {
		return fmt.Errorf("%w: position (%v, %v) is not finite", ErrInvalidGeometry, p.X, p.Y)
	}
	if !d.ContainsPixel(p) {
		return fmt.Errorf("%w: position (%.1f, %.1f) outside %.0fx%.0f image",
			ErrInvalidGeometry, p.X, p.Y, d.PixelWidth, d.PixelHeight)
	}
	return nil
}

// MeterPosition checks p is finite and inside the world.
func MeterPosition(p core.Position, d core.MapDimensions) error {
	if !p.IsFinite() {
		return fmt.Errorf("%w: position (%v, %v) is not finite", ErrInvalidGeometry, p.X, p.Y)
	}
	if !d.ContainsMeter(p) {
		return fmt.Errorf("%w: position (%.1f, %.1f) outside %.0fx%.0f m world",
			ErrInvalidGeometry, p.X, p.Y, d.MeterWidth, d.MeterHeight)
	}
	return nil
}

// Wind checks direction is in [0, 360) and strength in [0, 5].
func Wind(w core.WindState) error {
	if math.IsNaN(w.Direction) || math.IsInf(w.Direction, 0) || w.Direction < 0 || w.Direction >= 360 {
		return fmt.Errorf("%w: wind direction %v must be in [0, 360)", ErrInvalidRange, w.Direction)
	}
	if w.Strength < 0 || w.Strength > ballistics.MaxWindStrength {
		return fmt.Errorf("%w: wind strength %d must be in [0, %d]", ErrInvalidRange, w.Strength, ballistics.MaxWindStrength)
	}
	return nil
}

// PlanName checks the name length.
func PlanName(name string) error {
	if n := utf8.RuneCountInString(name); n > MaxPlanNameLength {
		return fmt.Errorf("%w: plan name is %d characters, max %d", ErrInvalidRange, n, MaxPlanNameLength)
	}
	return nil
}

// WeaponID checks id names a catalogue weapon. Unassigned ids are accepted.
func WeaponID(cat Catalog, id string) error {
	if core.IsUnassigned(id) {
		return nil
	}
	if _, ok := cat.Weapon(id); !ok {
		return fmt.Errorf("%w: unknown weapon %q", ErrInvalidReference, id)
	}
	return nil
}

// RequiredWeapon resolves id to a catalogue weapon. Unassigned ids are rejected.
func RequiredWeapon(cat Catalog, id string) (core.WeaponSpec, error) {
	w, ok := cat.Weapon(id)
	if !ok {
		return core.WeaponSpec{}, fmt.Errorf("%w: unknown weapon %q", ErrInvalidReference, id)
	}
	return w, nil
}

// MapID resolves id to a catalogue map.
func MapID(cat Catalog, id string) (core.MapSpec, error) {
	m, ok := cat.Map(id)
	if !ok {
		return core.MapSpec{}, fmt.Errorf("%w: unknown map %q", ErrInvalidReference, id)
	}
	return m, nil
}

// Index checks i addresses one of n markers.
func Index(kind core.MarkerKind, i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %s index %d out of bounds (have %d)", ErrInvalidReference, kind, i, n)
	}
	return nil
}

// PlanRecord validates a record about to be stored. Positions are meters.
func PlanRecord(cat Catalog, rec *core.PlanRecord) error {
	if err := PlanName(rec.Name); err != nil {
		return err
	}
	m, err := MapID(cat, rec.MapID)
	if err != nil {
		return err
	}
	for _, id := range rec.WeaponIDs {
		if err := WeaponID(cat, id); err != nil {
			return err
		}
	}
	for _, list := range [][]core.Position{rec.GunPositions, rec.TargetPositions, rec.SpotterPositions} {
		for _, p := range list {
			if err := MeterPosition(p, m.Dimensions); err != nil {
				return err
			}
		}
	}
	if len(rec.WeaponIDs) > len(rec.GunPositions) {
		return fmt.Errorf("%w: %d weapon ids for %d guns", ErrInvalidReference, len(rec.WeaponIDs), len(rec.GunPositions))
	}
	if len(rec.GunTargetIndices) > len(rec.GunPositions) {
		return fmt.Errorf("%w: %d pairing entries for %d guns", ErrInvalidReference, len(rec.GunTargetIndices), len(rec.GunPositions))
	}
	for _, idx := range rec.GunTargetIndices {
		if idx == nil {
			continue
		}
		if err := Index(core.KindTarget, *idx, len(rec.TargetPositions)); err != nil {
			return err
		}
	}
	if rec.WindDirection != nil {
		if err := Wind(rec.Wind()); err != nil {
			return err
		}
	} else if rec.WindStrength < 0 || rec.WindStrength > ballistics.MaxWindStrength {
		return fmt.Errorf("%w: wind strength %d must be in [0, %d]", ErrInvalidRange, rec.WindStrength, ballistics.MaxWindStrength)
	}
	return nil
}
