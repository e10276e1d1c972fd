package plan

import (
	"math"
	"slices"

	"github.com/foxholetools/artyplanner/pkg/core"
)

// Removed describes a marker taken out of the model with everything needed
// to put it back exactly.
type Removed struct {
	Kind     core.MarkerKind
	Index    int
	Position core.Position

	// Guns only.
	WeaponID string
	Slot     int

	// Targets only: the guns that were paired with the removed target.
	PairedGuns []int
}

// RemoveNearest removes the marker of kind closest to pos, measured in pixel space.
// Ties go to the lower index. It reports false when no marker of kind exists.
func (m *Model) RemoveNearest(pos core.Position, kind core.MarkerKind) (Removed, bool) {
	return m.RemoveNearestWithin(pos, kind, math.Inf(1))
}

// RemoveNearestWithin is RemoveNearest limited to markers no farther than radius.
func (m *Model) RemoveNearestWithin(pos core.Position, kind core.MarkerKind, radius float64) (Removed, bool) {
	idx, ok := m.Nearest(pos, kind, radius)
	if !ok {
		return Removed{}, false
	}
	r, _ := m.RemoveAt(kind, idx)
	return r, true
}

// Nearest finds the index of the marker of kind closest to pos within radius.
func (m *Model) Nearest(pos core.Position, kind core.MarkerKind, radius float64) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i := 0; i < m.Count(kind); i++ {
		p, _ := m.Position(kind, i)
		if d := p.DistanceTo(pos); d < bestDist && d <= radius {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// RemoveAt removes marker idx of kind.
//
// Removing a gun drops its pairing slot. Removing a target clears every slot
// pointing at it and shifts slots pointing past it down by one.
func (m *Model) RemoveAt(kind core.MarkerKind, idx int) (Removed, error) {
	if err := m.checkIndex(kind, idx); err != nil {
		return Removed{}, err
	}

	r := Removed{Kind: kind, Index: idx}
	switch kind {
	case core.KindGun:
		g := m.guns[idx]
		r.Position, r.WeaponID, r.Slot = g.Position, g.WeaponID, m.pairing[idx]
		m.guns = slices.Delete(m.guns, idx, idx+1)
		m.pairing = slices.Delete(m.pairing, idx, idx+1)

	case core.KindTarget:
		r.Position = m.targets[idx].Position
		m.targets = slices.Delete(m.targets, idx, idx+1)
		for g, slot := range m.pairing {
			switch {
			case slot == idx:
				r.PairedGuns = append(r.PairedGuns, g)
				m.pairing[g] = core.NoTarget
			case slot > idx:
				m.pairing[g] = slot - 1
			}
		}

	case core.KindSpotter:
		r.Position = m.spotters[idx].Position
		m.spotters = slices.Delete(m.spotters, idx, idx+1)
	}
	return r, nil
}

// Reinsert undoes a RemoveAt, restoring the marker at its old index along with
// every pairing entry the removal touched.
func (m *Model) Reinsert(r Removed) error {
	if r.Index < 0 || r.Index > m.Count(r.Kind) {
		return ErrInvalidIndex
	}

	switch r.Kind {
	case core.KindGun:
		m.guns = slices.Insert(m.guns, r.Index, core.Gun{Position: r.Position, WeaponID: r.WeaponID})
		m.pairing = slices.Insert(m.pairing, r.Index, r.Slot)

	case core.KindTarget:
		m.targets = slices.Insert(m.targets, r.Index, core.Target{Position: r.Position})
		for g, slot := range m.pairing {
			if slot != core.NoTarget && slot >= r.Index {
				m.pairing[g] = slot + 1
			}
		}
		for _, g := range r.PairedGuns {
			if g >= 0 && g < len(m.pairing) {
				m.pairing[g] = r.Index
			}
		}

	case core.KindSpotter:
		m.spotters = slices.Insert(m.spotters, r.Index, core.Spotter{Position: r.Position})
	}
	return nil
}
