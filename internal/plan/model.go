// Package plan holds the marker and pairing state of one editing session.
//
// Positions are stored in pixel space. Each gun owns one pairing slot at the
// same index holding a target index or core.NoTarget. A Model is not safe for
// concurrent use; callers serialize access per session.
package plan

import (
	"fmt"
	"slices"

	"github.com/foxholetools/artyplanner/internal/validate"
	"github.com/foxholetools/artyplanner/pkg/core"
)

// ErrInvalidIndex is returned when a gun or target index does not exist.
var ErrInvalidIndex = fmt.Errorf("%w: index out of bounds", validate.ErrInvalidReference)

// Model is the mutable marker state of a plan.
type Model struct {
	guns     []core.Gun
	targets  []core.Target
	spotters []core.Spotter
	pairing  []int
	wind     core.WindState
}

// NewModel returns an empty plan.
func NewModel() *Model {
	return &Model{}
}

// Guns returns a copy of the placed guns.
func (m *Model) Guns() []core.Gun { return slices.Clone(m.guns) }

// Targets returns a copy of the placed targets.
func (m *Model) Targets() []core.Target { return slices.Clone(m.targets) }

// Spotters returns a copy of the placed spotters.
func (m *Model) Spotters() []core.Spotter { return slices.Clone(m.spotters) }

// Pairing returns a copy of the pairing table, one entry per gun.
func (m *Model) Pairing() []int { return slices.Clone(m.pairing) }

// Wind returns the plan's current wind.
func (m *Model) Wind() core.WindState { return m.wind }

// SetWind replaces the plan's wind. Callers validate first.
func (m *Model) SetWind(w core.WindState) { m.wind = w }

// Count returns how many markers of kind exist.
func (m *Model) Count(kind core.MarkerKind) int {
	switch kind {
	case core.KindGun:
		return len(m.guns)
	case core.KindTarget:
		return len(m.targets)
	case core.KindSpotter:
		return len(m.spotters)
	}
	return 0
}

// Position returns the position of marker idx of kind.
func (m *Model) Position(kind core.MarkerKind, idx int) (core.Position, error) {
	if err := m.checkIndex(kind, idx); err != nil {
		return core.Position{}, err
	}
	switch kind {
	case core.KindGun:
		return m.guns[idx].Position, nil
	case core.KindTarget:
		return m.targets[idx].Position, nil
	default:
		return m.spotters[idx].Position, nil
	}
}

// PairedTarget returns the target index gun is paired with, or core.NoTarget.
func (m *Model) PairedTarget(gun int) (int, error) {
	if err := m.checkIndex(core.KindGun, gun); err != nil {
		return core.NoTarget, err
	}
	return m.pairing[gun], nil
}

// PlaceGun appends a gun and pairs it with the lowest-index target no gun references yet.
func (m *Model) PlaceGun(pos core.Position, weaponID string) int {
	slot := core.NoTarget
	for t := range m.targets {
		if !m.targetReferenced(t) {
			slot = t
			break
		}
	}
	m.guns = append(m.guns, core.Gun{Position: pos, WeaponID: weaponID})
	m.pairing = append(m.pairing, slot)
	return len(m.guns) - 1
}

// PlaceTarget appends a target and pairs the lowest-index unpaired gun to it.
// It returns the new target index and the gun that was paired, or -1.
func (m *Model) PlaceTarget(pos core.Position) (idx, pairedGun int) {
	m.targets = append(m.targets, core.Target{Position: pos})
	idx = len(m.targets) - 1
	pairedGun = -1
	for g, slot := range m.pairing {
		if slot == core.NoTarget {
			m.pairing[g] = idx
			pairedGun = g
			break
		}
	}
	return idx, pairedGun
}

// PlaceSpotter appends a spotter.
func (m *Model) PlaceSpotter(pos core.Position) int {
	m.spotters = append(m.spotters, core.Spotter{Position: pos})
	return len(m.spotters) - 1
}

// SetPairing points gun at target, or clears it with core.NoTarget.
// Several guns may share a target.
func (m *Model) SetPairing(gun, target int) error {
	if err := m.checkIndex(core.KindGun, gun); err != nil {
		return err
	}
	if target != core.NoTarget {
		if err := m.checkIndex(core.KindTarget, target); err != nil {
			return err
		}
	}
	m.pairing[gun] = target
	return nil
}

// SetWeapon changes the weapon of gun and returns the previous one.
func (m *Model) SetWeapon(gun int, weaponID string) (string, error) {
	if err := m.checkIndex(core.KindGun, gun); err != nil {
		return "", err
	}
	prev := m.guns[gun].WeaponID
	m.guns[gun].WeaponID = weaponID
	return prev, nil
}

// Move relocates marker idx of kind and returns its previous position.
func (m *Model) Move(kind core.MarkerKind, idx int, pos core.Position) (core.Position, error) {
	prev, err := m.Position(kind, idx)
	if err != nil {
		return core.Position{}, err
	}
	switch kind {
	case core.KindGun:
		m.guns[idx].Position = pos
	case core.KindTarget:
		m.targets[idx].Position = pos
	default:
		m.spotters[idx].Position = pos
	}
	return prev, nil
}

func (m *Model) targetReferenced(t int) bool {
	return slices.Contains(m.pairing, t)
}

func (m *Model) checkIndex(kind core.MarkerKind, idx int) error {
	if idx < 0 || idx >= m.Count(kind) {
		return fmt.Errorf("%w: %s %d (have %d)", ErrInvalidIndex, kind, idx, m.Count(kind))
	}
	return nil
}
