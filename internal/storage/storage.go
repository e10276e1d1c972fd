// Package storage defines the plan persistence contract and picks a backend.
package storage

import (
	"context"
	"errors"
	"sort"

	"github.com/foxholetools/artyplanner/pkg/core"
)

// ErrPlanNotFound is returned by GetPlan for an unknown ID.
var ErrPlanNotFound = errors.New("plan not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Plans. SavePlan inserts or replaces by ID.
	SavePlan(ctx context.Context, rec *core.PlanRecord) error
	GetPlan(ctx context.Context, id string) (*core.PlanRecord, error)
	CountPlans(ctx context.Context) (int64, error)

	// Usage counters. Counts are added to the stored totals.
	RecordPlacements(ctx context.Context, counts []core.PlacementCount) error
	PlacementCounts(ctx context.Context) ([]core.PlacementCount, error)
}

// Sizer is an optional interface for backends that can report their size on disk or in memory.
type Sizer interface {
	SizeBytes(ctx context.Context) (int64, error)
}

// Exporter is an optional interface for backends that write their plans to files.
type Exporter interface {
	Export() (string, error)
}

// MergePlacements folds counts with the same kind and weapon together,
// keeping first-seen order.
func MergePlacements(counts []core.PlacementCount) []core.PlacementCount {
	type key struct {
		kind   core.MarkerKind
		weapon string
	}
	idx := make(map[key]int, len(counts))
	out := make([]core.PlacementCount, 0, len(counts))
	for _, c := range counts {
		k := key{c.Kind, c.WeaponID}
		if i, ok := idx[k]; ok {
			out[i].Count += c.Count
			continue
		}
		idx[k] = len(out)
		out = append(out, c)
	}
	return out
}

// SortPlacements orders counts by kind, then weapon ID.
func SortPlacements(counts []core.PlacementCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Kind != counts[j].Kind {
			return counts[i].Kind < counts[j].Kind
		}
		return counts[i].WeaponID < counts[j].WeaponID
	})
}
