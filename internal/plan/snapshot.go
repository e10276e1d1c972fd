package plan

import (
	"slices"

	"github.com/foxholetools/artyplanner/pkg/core"
)

// Snapshot is a value copy of a Model.
type Snapshot struct {
	Guns     []core.Gun     `json:"guns"`
	Targets  []core.Target  `json:"targets"`
	Spotters []core.Spotter `json:"spotters"`
	Pairing  []int          `json:"pairing"`
	Wind     core.WindState `json:"wind"`
}

// Snapshot copies the model's state. Empty collections are returned as empty slices.
func (m *Model) Snapshot() Snapshot {
	return Snapshot{
		Guns:     append([]core.Gun{}, m.guns...),
		Targets:  append([]core.Target{}, m.targets...),
		Spotters: append([]core.Spotter{}, m.spotters...),
		Pairing:  append([]int{}, m.pairing...),
		Wind:     m.wind,
	}
}

// Restore replaces the model's state with s.
func (m *Model) Restore(s Snapshot) {
	m.guns = slices.Clone(s.Guns)
	m.targets = slices.Clone(s.Targets)
	m.spotters = slices.Clone(s.Spotters)
	m.pairing = slices.Clone(s.Pairing)
	m.wind = s.Wind
}

// Equal reports whether two models hold the same state.
func (m *Model) Equal(o *Model) bool {
	return slices.Equal(m.guns, o.guns) &&
		slices.Equal(m.targets, o.targets) &&
		slices.Equal(m.spotters, o.spotters) &&
		slices.Equal(m.pairing, o.pairing) &&
		m.wind == o.wind
}
