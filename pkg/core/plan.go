// pkg/core/plan.go
package core

import "time"

// PlanRecord is the persisted and shared form of a plan. Positions are in meters.
//
// GunPosition, TargetPosition and SpotterPosition are the single-marker fields
// of the first plan format. They are read but never written.
type PlanRecord struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	MapID            string     `json:"mapId"`
	WeaponIDs        []string   `json:"weaponIds"`
	GunPositions     []Position `json:"gunPositions"`
	TargetPositions  []Position `json:"targetPositions"`
	SpotterPositions []Position `json:"spotterPositions"`
	GunTargetIndices []*int     `json:"gunTargetIndices"`
	WindDirection    *float64   `json:"windDirection"`
	WindStrength     int        `json:"windStrength"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	GunPosition     *Position `json:"gunPosition,omitempty"`
	TargetPosition  *Position `json:"targetPosition,omitempty"`
	SpotterPosition *Position `json:"spotterPosition,omitempty"`
}

// IsLegacy reports whether the record still carries first-format fields
// and has no pairing table.
func (r *PlanRecord) IsLegacy() bool {
	if r.GunTargetIndices != nil {
		return false
	}
	return r.GunPosition != nil || r.TargetPosition != nil || r.SpotterPosition != nil
}

// PromoteLegacy moves single-marker fields into the list fields when those are empty.
func (r *PlanRecord) PromoteLegacy() {
	if len(r.GunPositions) == 0 && r.GunPosition != nil {
		r.GunPositions = []Position{*r.GunPosition}
	}
	if len(r.TargetPositions) == 0 && r.TargetPosition != nil {
		r.TargetPositions = []Position{*r.TargetPosition}
	}
	if len(r.SpotterPositions) == 0 && r.SpotterPosition != nil {
		r.SpotterPositions = []Position{*r.SpotterPosition}
	}
	r.GunPosition, r.TargetPosition, r.SpotterPosition = nil, nil, nil
	for i := range r.GunPositions {
		r.GunPositions[i].Space = SpaceMeter
	}
	for i := range r.TargetPositions {
		r.TargetPositions[i].Space = SpaceMeter
	}
	for i := range r.SpotterPositions {
		r.SpotterPositions[i].Space = SpaceMeter
	}
}

// Wind returns the record's wind, treating a missing direction as 0.
func (r *PlanRecord) Wind() WindState {
	w := WindState{Strength: r.WindStrength}
	if r.WindDirection != nil {
		w.Direction = *r.WindDirection
	}
	return w
}

// Clone returns a deep copy of r.
func (r *PlanRecord) Clone() *PlanRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.WeaponIDs = cloneSlice(r.WeaponIDs)
	c.GunPositions = cloneSlice(r.GunPositions)
	c.TargetPositions = cloneSlice(r.TargetPositions)
	c.SpotterPositions = cloneSlice(r.SpotterPositions)
	if r.GunTargetIndices != nil {
		c.GunTargetIndices = make([]*int, len(r.GunTargetIndices))
		for i, p := range r.GunTargetIndices {
			if p != nil {
				v := *p
				c.GunTargetIndices[i] = &v
			}
		}
	}
	c.WindDirection = clonePtr(r.WindDirection)
	c.GunPosition = clonePtr(r.GunPosition)
	c.TargetPosition = clonePtr(r.TargetPosition)
	c.SpotterPosition = clonePtr(r.SpotterPosition)
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
