// Package planner ties the calculator, the marker model and storage together
// behind the operations the HTTP API and the CLI expose.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxholetools/artyplanner/internal/ballistics"
	"github.com/foxholetools/artyplanner/internal/catalog"
	"github.com/foxholetools/artyplanner/internal/config"
	"github.com/foxholetools/artyplanner/internal/geo"
	"github.com/foxholetools/artyplanner/internal/grid"
	"github.com/foxholetools/artyplanner/internal/influx"
	"github.com/foxholetools/artyplanner/internal/logging"
	intOtel "github.com/foxholetools/artyplanner/internal/otel"
	"github.com/foxholetools/artyplanner/internal/plan"
	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/internal/validate"
	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Dependencies holds all dependencies for the planner service
type Dependencies struct {
	Catalog    *catalog.Catalog
	Backend    storage.Backend
	LogManager *logging.SlogManager
	Config     config.PlannerConfig
	Grid       grid.Layout

	// Optional. Nil Metrics falls back to the global meter, nil Influx skips usage points.
	Metrics *intOtel.Metrics
	Influx  *influx.Manager
	Now     func() time.Time
}

// Service implements the planner operations.
type Service struct {
	deps    Dependencies
	log     *slog.Logger
	tracker *Tracker
}

// NewService creates a new planner service and starts the placement flusher.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Catalog == nil {
		return nil, errors.New("planner: catalog is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("planner: storage backend is required")
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Metrics == nil {
		m, err := intOtel.New(nil)
		if err != nil {
			return nil, err
		}
		deps.Metrics = m
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Config.HistoryLimit <= 0 {
		deps.Config.HistoryLimit = 50
	}

	s := &Service{
		deps: deps,
		log:  deps.LogManager.Logger().With("component", "planner"),
	}
	s.tracker = newTracker(deps.Backend, deps.Influx, deps.Metrics, s.log, deps.Config.FlushInterval, deps.Now)
	s.tracker.start()
	return s, nil
}

// Catalog returns the weapon and map catalogue.
func (s *Service) Catalog() *catalog.Catalog { return s.deps.Catalog }

// Close stops the placement flusher after a final flush.
func (s *Service) Close() error {
	return s.tracker.Close()
}

// CalcRequest is a one-off firing solution request in world meters.
type CalcRequest struct {
	Gun      core.Position  `json:"gun"`
	Target   core.Position  `json:"target"`
	WeaponID string         `json:"weaponId"`
	Wind     core.WindState `json:"wind"`
	// MapID, when set, bounds-checks both positions against the map.
	MapID string `json:"mapId,omitempty"`
}

// Calculate validates req and returns its firing solution.
func (s *Service) Calculate(ctx context.Context, req CalcRequest) (core.FiringSolution, error) {
	req.Gun.Space, req.Target.Space = core.SpaceMeter, core.SpaceMeter

	w, err := validate.RequiredWeapon(s.deps.Catalog, req.WeaponID)
	if err != nil {
		return core.FiringSolution{}, err
	}
	if err := validate.Wind(req.Wind); err != nil {
		return core.FiringSolution{}, err
	}
	for _, p := range []core.Position{req.Gun, req.Target} {
		if !p.IsFinite() {
			return core.FiringSolution{}, fmt.Errorf("%w: position (%v, %v) is not finite", validate.ErrInvalidGeometry, p.X, p.Y)
		}
	}
	if req.MapID != "" {
		m, err := validate.MapID(s.deps.Catalog, req.MapID)
		if err != nil {
			return core.FiringSolution{}, err
		}
		for _, p := range []core.Position{req.Gun, req.Target} {
			if err := validate.MeterPosition(p, m.Dimensions); err != nil {
				return core.FiringSolution{}, err
			}
		}
	}

	sol := ballistics.Solve(req.Gun, req.Target, w, req.Wind)
	s.deps.Metrics.Calculation(ctx, w.ID, sol.InRange)
	s.writePoint(influx.CalculationPoint(w.ID, sol, req.Wind, s.deps.Now()))
	return sol, nil
}

// CreatePlan validates rec and stores it under a fresh ID. Plans are
// immutable once shared, so every save creates a new one. rec is not modified.
func (s *Service) CreatePlan(ctx context.Context, rec *core.PlanRecord) (*core.PlanRecord, error) {
	out := rec.Clone()
	if out.IsLegacy() {
		m, err := validate.MapID(s.deps.Catalog, out.MapID)
		if err != nil {
			return nil, err
		}
		if err := migrateRecord(out, m.Dimensions); err != nil {
			return nil, err
		}
	}
	out.PromoteLegacy()
	for len(out.WeaponIDs) < len(out.GunPositions) {
		out.WeaponIDs = append(out.WeaponIDs, core.UnassignedWeapon)
	}
	if out.GunTargetIndices == nil {
		out.GunTargetIndices = []*int{}
	}

	if err := validate.PlanRecord(s.deps.Catalog, out); err != nil {
		s.log.WarnContext(ctx, "Plan validation failed", "error", err)
		return nil, err
	}

	now := s.deps.Now().UTC()
	out.ID = uuid.NewString()
	out.CreatedAt, out.UpdatedAt = now, now

	if err := s.deps.Backend.SavePlan(ctx, out); err != nil {
		s.log.ErrorContext(ctx, "Failed to save plan", "error", err)
		return nil, fmt.Errorf("saving plan: %w", err)
	}

	s.deps.Metrics.PlanSaved(ctx)
	s.writePoint(influx.PlanSavedPoint(out, now))
	s.log.InfoContext(ctx, "Plan created", "planId", out.ID, "map", out.MapID, "guns", len(out.GunPositions))
	return out.Clone(), nil
}

// GetPlan loads a plan. Records in the single-marker format are returned in
// the multi-marker form with their pairing table filled in.
func (s *Service) GetPlan(ctx context.Context, id string) (*core.PlanRecord, error) {
	rec, err := s.deps.Backend.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsLegacy() || rec.GunTargetIndices == nil {
		m, err := validate.MapID(s.deps.Catalog, rec.MapID)
		if err != nil {
			return nil, err
		}
		if err := migrateRecord(rec, m.Dimensions); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// migrateRecord rewrites rec through the marker model so the pairing table is explicit.
func migrateRecord(rec *core.PlanRecord, d core.MapDimensions) error {
	model, err := plan.FromRecord(rec, d)
	if err != nil {
		return err
	}
	model.ApplyTo(rec, d)
	return nil
}

// FiringLines solves every paired gun of rec that has a known weapon.
func (s *Service) FiringLines(rec *core.PlanRecord) []geo.FiringLine {
	var lines []geo.FiringLine
	for g, idx := range rec.GunTargetIndices {
		if idx == nil || *idx < 0 || *idx >= len(rec.TargetPositions) || g >= len(rec.GunPositions) {
			continue
		}
		if g >= len(rec.WeaponIDs) {
			continue
		}
		w, ok := s.deps.Catalog.Weapon(rec.WeaponIDs[g])
		if !ok {
			continue
		}
		lines = append(lines, geo.FiringLine{
			Gun:      g,
			Target:   *idx,
			Solution: ballistics.Solve(rec.GunPositions[g], rec.TargetPositions[*idx], w, rec.Wind()),
		})
	}
	return lines
}

// PlanGeoJSON loads a plan and renders its markers and firing lines as GeoJSON.
func (s *Service) PlanGeoJSON(ctx context.Context, id string) (geom.GeoJSONFeatureCollection, error) {
	rec, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return geo.PlanFeatures(rec, s.FiringLines(rec)), nil
}

// TrackPlacement counts one placed marker. Guns without a weapon count as unassigned.
func (s *Service) TrackPlacement(ctx context.Context, kind core.MarkerKind, weaponID string) error {
	switch kind {
	case core.KindGun:
		if err := validate.WeaponID(s.deps.Catalog, weaponID); err != nil {
			return err
		}
		if core.IsUnassigned(weaponID) {
			weaponID = core.UnassignedWeapon
		}
	case core.KindTarget, core.KindSpotter:
		weaponID = ""
	default:
		return fmt.Errorf("%w: unknown marker kind %d", validate.ErrInvalidReference, kind)
	}
	s.tracker.Track(ctx, kind, weaponID)
	return nil
}

func (s *Service) writePoint(p *influxdb2_write.Point) {
	if s.deps.Influx == nil {
		return
	}
	if err := s.deps.Influx.WritePoint(p); err != nil {
		s.log.Debug("Failed to write usage point", "error", err)
	}
}
