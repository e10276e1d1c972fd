package plan

import (
	"fmt"

	"github.com/foxholetools/artyplanner/internal/grid"
	"github.com/foxholetools/artyplanner/pkg/core"
)

// MigrateLegacyPlan builds the pairing table of a single-gun, single-target plan:
// gun 0 fires at target 0 when both exist, otherwise the table is empty.
func MigrateLegacyPlan(gun, target *core.Position) []int {
	if gun != nil && target != nil {
		return []int{0}
	}
	return []int{}
}

// FromRecord rebuilds a model from a stored record, converting meters to pixels.
//
// Records in the single-marker format are migrated. Records that list several
// guns but carry no pairing table pair gun i with target i where it exists.
func FromRecord(rec *core.PlanRecord, d core.MapDimensions) (*Model, error) {
	var pairing []int
	switch {
	case rec.IsLegacy():
		legacyGun, legacyTarget := rec.GunPosition, rec.TargetPosition
		if len(rec.GunPositions) > 0 {
			legacyGun = &rec.GunPositions[0]
		}
		if len(rec.TargetPositions) > 0 {
			legacyTarget = &rec.TargetPositions[0]
		}
		pairing = MigrateLegacyPlan(legacyGun, legacyTarget)
		rec.PromoteLegacy()
	case rec.GunTargetIndices == nil:
		rec.PromoteLegacy()
		for i := range rec.GunPositions {
			if i < len(rec.TargetPositions) {
				pairing = append(pairing, i)
			} else {
				pairing = append(pairing, core.NoTarget)
			}
		}
	default:
		rec.PromoteLegacy()
		for _, idx := range rec.GunTargetIndices {
			if idx == nil {
				pairing = append(pairing, core.NoTarget)
				continue
			}
			if *idx < 0 || *idx >= len(rec.TargetPositions) {
				return nil, fmt.Errorf("%w: stored pairing to target %d (have %d)", ErrInvalidIndex, *idx, len(rec.TargetPositions))
			}
			pairing = append(pairing, *idx)
		}
	}

	m := NewModel()
	for i, p := range rec.GunPositions {
		weapon := core.UnassignedWeapon
		if i < len(rec.WeaponIDs) && rec.WeaponIDs[i] != "" {
			weapon = rec.WeaponIDs[i]
		}
		m.guns = append(m.guns, core.Gun{Position: grid.MetersToPixel(p, d), WeaponID: weapon})
	}
	for _, p := range rec.TargetPositions {
		m.targets = append(m.targets, core.Target{Position: grid.MetersToPixel(p, d)})
	}
	for _, p := range rec.SpotterPositions {
		m.spotters = append(m.spotters, core.Spotter{Position: grid.MetersToPixel(p, d)})
	}

	if len(pairing) > len(m.guns) {
		pairing = pairing[:len(m.guns)]
	}
	for len(pairing) < len(m.guns) {
		pairing = append(pairing, core.NoTarget)
	}
	m.pairing = pairing
	m.wind = rec.Wind()
	return m, nil
}

// ApplyTo writes the model's markers, pairing and wind into rec, converting pixels to meters.
// Identity, name, map and timestamps are left to the caller.
func (m *Model) ApplyTo(rec *core.PlanRecord, d core.MapDimensions) {
	rec.GunPositions = make([]core.Position, 0, len(m.guns))
	rec.WeaponIDs = make([]string, 0, len(m.guns))
	for _, g := range m.guns {
		rec.GunPositions = append(rec.GunPositions, grid.PixelToMeters(g.Position, d))
		weapon := g.WeaponID
		if weapon == "" {
			weapon = core.UnassignedWeapon
		}
		rec.WeaponIDs = append(rec.WeaponIDs, weapon)
	}

	rec.TargetPositions = make([]core.Position, 0, len(m.targets))
	for _, t := range m.targets {
		rec.TargetPositions = append(rec.TargetPositions, grid.PixelToMeters(t.Position, d))
	}

	rec.SpotterPositions = make([]core.Position, 0, len(m.spotters))
	for _, s := range m.spotters {
		rec.SpotterPositions = append(rec.SpotterPositions, grid.PixelToMeters(s.Position, d))
	}

	rec.GunTargetIndices = make([]*int, 0, len(m.pairing))
	for _, slot := range m.pairing {
		if slot == core.NoTarget {
			rec.GunTargetIndices = append(rec.GunTargetIndices, nil)
			continue
		}
		idx := slot
		rec.GunTargetIndices = append(rec.GunTargetIndices, &idx)
	}

	dir := m.wind.Direction
	rec.WindDirection = &dir
	rec.WindStrength = m.wind.Strength
	rec.GunPosition, rec.TargetPosition, rec.SpotterPosition = nil, nil, nil
}
