// Package gormstore implements storage.Backend on any gorm dialect. The sqlite
// and postgres backends wrap it.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxholetools/artyplanner/internal/database"
	"github.com/foxholetools/artyplanner/internal/logging"
	"github.com/foxholetools/artyplanner/internal/model"
	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps: deps,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection")
	}
	log := b.deps.LogManager

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		log.WriteLog("setupDB", fmt.Sprintf("Failed to migrate schema: %s", err), "ERROR")
		return err
	}
	log.WriteLog("setupDB", "Database setup complete", "INFO")
	b.dbReady = true
	return nil
}

// Close is a no-op; the owner of the connection closes it.
func (b *Backend) Close() error {
	return nil
}

// SavePlan replaces the plan row and all of its markers in one transaction.
func (b *Backend) SavePlan(ctx context.Context, rec *core.PlanRecord) error {
	if !b.dbReady {
		return fmt.Errorf("database not initialized")
	}
	row, err := planToGorm(rec)
	if err != nil {
		return err
	}
	markers := row.Markers
	row.Markers = nil

	return b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", row.ID).Delete(&model.Marker{}).Error; err != nil {
			return fmt.Errorf("failed to clear markers of plan %s: %w", row.ID, err)
		}
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to save plan %s: %w", row.ID, err)
		}
		if len(markers) > 0 {
			if err := tx.Create(&markers).Error; err != nil {
				return fmt.Errorf("failed to insert markers of plan %s: %w", row.ID, err)
			}
		}
		return nil
	})
}

// GetPlan loads a plan with its markers.
func (b *Backend) GetPlan(ctx context.Context, id string) (*core.PlanRecord, error) {
	if !b.dbReady {
		return nil, fmt.Errorf("database not initialized")
	}
	var row model.Plan
	err := b.deps.DB.WithContext(ctx).
		Preload("Markers", func(db *gorm.DB) *gorm.DB { return db.Order("kind, ordinal") }).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", id, err)
	}
	return gormToPlan(row)
}

// CountPlans returns the number of plan rows.
func (b *Backend) CountPlans(ctx context.Context) (int64, error) {
	if !b.dbReady {
		return 0, fmt.Errorf("database not initialized")
	}
	var n int64
	if err := b.deps.DB.WithContext(ctx).Model(&model.Plan{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count plans: %w", err)
	}
	return n, nil
}

// RecordPlacements upserts the counters, adding to existing totals.
func (b *Backend) RecordPlacements(ctx context.Context, counts []core.PlacementCount) error {
	if !b.dbReady {
		return fmt.Errorf("database not initialized")
	}
	counts = storage.MergePlacements(counts)
	if len(counts) == 0 {
		return nil
	}
	rows := make([]model.PlacementStat, len(counts))
	for i, c := range counts {
		rows[i] = model.PlacementStat{Kind: c.Kind.String(), WeaponID: c.WeaponID, Count: c.Count}
	}

	err := b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kind"}, {Name: "weapon_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("placement_stats.count + excluded.count"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&rows).Error
	if err != nil {
		b.deps.LogManager.WriteLog(":DB:WRITER:", fmt.Sprintf("Error creating placement stats: %v", err), "ERROR")
		return fmt.Errorf("failed to record placements: %w", err)
	}
	return nil
}

// PlacementCounts returns all counters ordered by kind, then weapon ID.
func (b *Backend) PlacementCounts(ctx context.Context) ([]core.PlacementCount, error) {
	if !b.dbReady {
		return nil, fmt.Errorf("database not initialized")
	}
	var rows []model.PlacementStat
	if err := b.deps.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load placement stats: %w", err)
	}

	out := make([]core.PlacementCount, 0, len(rows))
	for _, r := range rows {
		kind, err := core.ParseMarkerKind(r.Kind)
		if err != nil {
			continue
		}
		out = append(out, core.PlacementCount{Kind: kind, WeaponID: r.WeaponID, Count: r.Count})
	}
	storage.SortPlacements(out)
	return out, nil
}
