package planner

import (
	"context"
	"fmt"

	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/pkg/core"
)

// UnassignedDisplayName labels guns placed without a weapon in statistics.
const UnassignedDisplayName = "Unassigned"

// WeaponPlacementStat is the placement count of one weapon.
type WeaponPlacementStat struct {
	WeaponID    string       `json:"weaponId"`
	DisplayName string       `json:"displayName"`
	Faction     core.Faction `json:"faction"`
	Count       int64        `json:"count"`
}

// FactionTotals sums gun placements per faction. Weapons serving both
// factions count towards each, so Colonial + Warden can exceed Total.
type FactionTotals struct {
	Colonial int64 `json:"colonial"`
	Warden   int64 `json:"warden"`
	Total    int64 `json:"total"`
}

// MarkerTotals counts target and spotter placements.
type MarkerTotals struct {
	Targets  int64 `json:"targets"`
	Spotters int64 `json:"spotters"`
}

// Stats is the usage summary.
type Stats struct {
	TotalPlans       int64                 `json:"totalPlans"`
	StorageBytes     int64                 `json:"storageBytes"`
	GunPlacements    []WeaponPlacementStat `json:"gunPlacements"`
	GunTotals        FactionTotals         `json:"gunPlacementTotals"`
	MarkerPlacements MarkerTotals          `json:"markerPlacements"`
}

// Stats flushes pending placements and summarizes usage.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if err := s.tracker.Flush(ctx); err != nil {
		s.log.WarnContext(ctx, "Stats read before placements were flushed", "error", err)
	}

	var st Stats
	var err error
	if st.TotalPlans, err = s.deps.Backend.CountPlans(ctx); err != nil {
		return Stats{}, fmt.Errorf("counting plans: %w", err)
	}
	if sizer, ok := s.deps.Backend.(storage.Sizer); ok {
		if st.StorageBytes, err = sizer.SizeBytes(ctx); err != nil {
			return Stats{}, fmt.Errorf("measuring storage: %w", err)
		}
	}

	counts, err := s.deps.Backend.PlacementCounts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("reading placements: %w", err)
	}

	st.GunPlacements = []WeaponPlacementStat{}
	for _, c := range counts {
		switch c.Kind {
		case core.KindTarget:
			st.MarkerPlacements.Targets += c.Count
		case core.KindSpotter:
			st.MarkerPlacements.Spotters += c.Count
		case core.KindGun:
			stat := s.weaponStat(c)
			switch stat.Faction {
			case core.FactionColonial:
				st.GunTotals.Colonial += c.Count
			case core.FactionWarden:
				st.GunTotals.Warden += c.Count
			default:
				st.GunTotals.Colonial += c.Count
				st.GunTotals.Warden += c.Count
			}
			st.GunTotals.Total += c.Count
			st.GunPlacements = append(st.GunPlacements, stat)
		}
	}
	return st, nil
}

// weaponStat resolves display name and faction. Unknown and unassigned
// weapons count for both factions.
func (s *Service) weaponStat(c core.PlacementCount) WeaponPlacementStat {
	stat := WeaponPlacementStat{
		WeaponID:    c.WeaponID,
		DisplayName: c.WeaponID,
		Faction:     core.FactionBoth,
		Count:       c.Count,
	}
	if core.IsUnassigned(c.WeaponID) {
		stat.DisplayName = UnassignedDisplayName
		return stat
	}
	if w, ok := s.deps.Catalog.Weapon(c.WeaponID); ok {
		stat.DisplayName = w.DisplayName
		stat.Faction = w.Faction
	}
	return stat
}
