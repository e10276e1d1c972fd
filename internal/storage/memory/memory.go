// Package memory implements storage.Backend with in-process maps and a JSON
// export of all plans to OutputDir.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/foxholetools/artyplanner/internal/config"
	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/pkg/core"
)

type placementKey struct {
	kind   core.MarkerKind
	weapon string
}

// Backend stores plans in memory and exports them to JSON
type Backend struct {
	cfg config.MemoryConfig

	plans      map[string]*core.PlanRecord // keyed by plan ID
	placements map[placementKey]int64

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:        cfg,
		plans:      make(map[string]*core.PlanRecord),
		placements: make(map[placementKey]int64),
	}
}

// Init loads a previous export from OutputDir when one exists.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.importJSON()
}

// Close exports all plans when an output directory is configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.Export()
	return err
}

// SavePlan stores a copy of rec, replacing any plan with the same ID.
func (b *Backend) SavePlan(_ context.Context, rec *core.PlanRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plans[rec.ID] = rec.Clone()
	return nil
}

// GetPlan returns a copy of the stored plan.
func (b *Backend) GetPlan(_ context.Context, id string) (*core.PlanRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.plans[id]
	if !ok {
		return nil, storage.ErrPlanNotFound
	}
	return rec.Clone(), nil
}

// CountPlans returns the number of stored plans.
func (b *Backend) CountPlans(_ context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.plans)), nil
}

// RecordPlacements adds counts to the running totals.
func (b *Backend) RecordPlacements(_ context.Context, counts []core.PlacementCount) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range counts {
		b.placements[placementKey{c.Kind, c.WeaponID}] += c.Count
	}
	return nil
}

// PlacementCounts returns the totals ordered by kind, then weapon ID.
func (b *Backend) PlacementCounts(_ context.Context) ([]core.PlacementCount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.PlacementCount, 0, len(b.placements))
	for k, n := range b.placements {
		out = append(out, core.PlacementCount{Kind: k.kind, WeaponID: k.weapon, Count: n})
	}
	storage.SortPlacements(out)
	return out, nil
}

// SizeBytes reports the JSON size of all stored plans.
func (b *Backend) SizeBytes(_ context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total int64
	for _, rec := range b.plans {
		raw, err := json.Marshal(rec)
		if err != nil {
			return 0, err
		}
		total += int64(len(raw))
	}
	return total, nil
}

// GetExportedFilePath returns the path of the last export, or "".
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
