package gormstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/foxholetools/artyplanner/internal/geo"
	"github.com/foxholetools/artyplanner/internal/model"
	"github.com/foxholetools/artyplanner/pkg/core"
	"gorm.io/datatypes"
)

// planToGorm converts a record into a plan row and its marker rows.
func planToGorm(rec *core.PlanRecord) (model.Plan, error) {
	weapons, err := json.Marshal(nonNil(rec.WeaponIDs))
	if err != nil {
		return model.Plan{}, fmt.Errorf("failed to encode weapon IDs: %w", err)
	}
	// a nil table encodes as JSON null and survives the round trip
	pairing, err := json.Marshal(rec.GunTargetIndices)
	if err != nil {
		return model.Plan{}, fmt.Errorf("failed to encode pairing table: %w", err)
	}

	p := model.Plan{
		ID:               rec.ID,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
		Format:           model.FormatVersion,
		Name:             rec.Name,
		MapID:            rec.MapID,
		WindStrength:     rec.WindStrength,
		WeaponIDs:        datatypes.JSON(weapons),
		GunTargetIndices: datatypes.JSON(pairing),
	}
	if rec.WindDirection != nil {
		p.WindDirection = sql.NullFloat64{Float64: *rec.WindDirection, Valid: true}
	}

	addMarkers := func(kind core.MarkerKind, positions []core.Position) {
		for i, pos := range positions {
			m := model.Marker{
				PlanID:   rec.ID,
				Kind:     kind.String(),
				Ordinal:  i,
				Position: geo.PointFromPosition(pos),
			}
			if kind == core.KindGun && i < len(rec.WeaponIDs) {
				m.WeaponID = rec.WeaponIDs[i]
			}
			p.Markers = append(p.Markers, m)
		}
	}
	addMarkers(core.KindGun, rec.GunPositions)
	addMarkers(core.KindTarget, rec.TargetPositions)
	addMarkers(core.KindSpotter, rec.SpotterPositions)

	return p, nil
}

// gormToPlan rebuilds a record from a plan row with preloaded markers.
func gormToPlan(p model.Plan) (*core.PlanRecord, error) {
	rec := &core.PlanRecord{
		ID:               p.ID,
		Name:             p.Name,
		MapID:            p.MapID,
		WindStrength:     p.WindStrength,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		WeaponIDs:        []string{},
		GunPositions:     []core.Position{},
		TargetPositions:  []core.Position{},
		SpotterPositions: []core.Position{},
	}
	if p.WindDirection.Valid {
		d := p.WindDirection.Float64
		rec.WindDirection = &d
	}
	if len(p.WeaponIDs) > 0 {
		if err := json.Unmarshal(p.WeaponIDs, &rec.WeaponIDs); err != nil {
			return nil, fmt.Errorf("failed to decode weapon IDs of plan %s: %w", p.ID, err)
		}
	}
	if len(p.GunTargetIndices) > 0 {
		if err := json.Unmarshal(p.GunTargetIndices, &rec.GunTargetIndices); err != nil {
			return nil, fmt.Errorf("failed to decode pairing table of plan %s: %w", p.ID, err)
		}
	}

	markers := append([]model.Marker(nil), p.Markers...)
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Ordinal < markers[j].Ordinal
	})
	for _, m := range markers {
		pos, err := geo.PositionFromPoint(m.Position)
		if err != nil {
			return nil, fmt.Errorf("marker %d of plan %s: %w", m.ID, p.ID, err)
		}
		kind, err := core.ParseMarkerKind(m.Kind)
		if err != nil {
			return nil, fmt.Errorf("marker %d of plan %s: %w", m.ID, p.ID, err)
		}
		switch kind {
		case core.KindGun:
			rec.GunPositions = append(rec.GunPositions, pos)
		case core.KindTarget:
			rec.TargetPositions = append(rec.TargetPositions, pos)
		case core.KindSpotter:
			rec.SpotterPositions = append(rec.SpotterPositions, pos)
		}
	}
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
