package planner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxholetools/artyplanner/internal/ballistics"
	"github.com/foxholetools/artyplanner/internal/grid"
	"github.com/foxholetools/artyplanner/internal/history"
	"github.com/foxholetools/artyplanner/internal/logging"
	"github.com/foxholetools/artyplanner/internal/plan"
	"github.com/foxholetools/artyplanner/internal/validate"
	"github.com/foxholetools/artyplanner/pkg/core"
)

// subscriberBuffer is how many unread updates a subscriber may lag behind.
// Older updates are dropped first.
const subscriberBuffer = 8

// GunSolution is the live firing data of one gun.
type GunSolution struct {
	Gun      int    `json:"gun"`
	Target   int    `json:"target"`
	WeaponID string `json:"weaponId"`
	GunGrid  string `json:"gunGrid"`
	// Empty when the gun is unpaired.
	TargetGrid string `json:"targetGrid,omitempty"`
	// Nil when the gun is unpaired or has no weapon.
	Solution *core.FiringSolution `json:"solution,omitempty"`
	// AccuracyRadiusPx is the accuracy circle drawn on the map image.
	AccuracyRadiusPx float64 `json:"accuracyRadiusPx,omitempty"`
}

// View is the state of a session as shown to clients. Marker positions are pixels.
type View struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	MapID      string             `json:"mapId"`
	Dimensions core.MapDimensions `json:"dimensions"`
	Plan       plan.Snapshot      `json:"plan"`
	Solutions  []GunSolution      `json:"solutions"`
	CanUndo    bool               `json:"canUndo"`
	CanRedo    bool               `json:"canRedo"`
	Seq        uint64             `json:"seq"`
	Op         string             `json:"op,omitempty"`
}

// Session is one client's editing state: a marker model with its undo history.
// All methods are safe for concurrent use.
type Session struct {
	ID string

	svc   *Service
	mapID string
	dims  core.MapDimensions
	log   *slog.Logger

	mu       sync.Mutex
	name     string
	hist     *history.History
	seq      uint64
	lastUsed time.Time
	subs     map[int]chan View
	nextSub  int
	closed   bool
}

func newSession(svc *Service, id string, m core.MapSpec, name string, model *plan.Model) *Session {
	return &Session{
		ID:       id,
		svc:      svc,
		mapID:    m.ID,
		dims:     m.Dimensions,
		name:     name,
		hist:     history.New(model, svc.deps.Config.HistoryLimit),
		lastUsed: svc.deps.Now(),
		subs:     make(map[int]chan View),
		log:      svc.log.With("map", m.ID),
	}
}

func (s *Session) ctx(ctx context.Context) context.Context {
	return logging.WithSession(ctx, s.ID)
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view("")
}

// LastUsed is when the session was last read or edited.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Rename changes the name used when the session is saved. Not recorded in history.
func (s *Session) Rename(name string) (View, error) {
	if err := validate.PlanName(name); err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.lastUsed = s.svc.deps.Now()
	s.seq++
	return s.publish("rename"), nil
}

// Place puts a marker at pos (pixels). weaponID only applies to guns.
func (s *Session) Place(ctx context.Context, kind core.MarkerKind, pos core.Position, weaponID string) (View, error) {
	pos.Space = core.SpacePixel
	if err := validate.PixelPosition(pos, s.dims); err != nil {
		return View{}, err
	}
	if kind == core.KindGun {
		if err := validate.WeaponID(s.svc.deps.Catalog, weaponID); err != nil {
			return View{}, err
		}
		if weaponID == "" {
			weaponID = core.UnassignedWeapon
		}
	} else {
		weaponID = ""
	}

	v, err := s.apply(ctx, "place", history.NewPlaceMarker(kind, pos, weaponID))
	if err != nil {
		return View{}, err
	}
	if err := s.svc.TrackPlacement(s.ctx(ctx), kind, weaponID); err != nil {
		s.log.WarnContext(s.ctx(ctx), "Failed to track placement", "error", err)
	}
	return v, nil
}

// RemoveNearest removes the marker of kind closest to pos within the configured radius.
func (s *Session) RemoveNearest(ctx context.Context, kind core.MarkerKind, pos core.Position) (View, error) {
	pos.Space = core.SpacePixel
	if !pos.IsFinite() {
		return View{}, validate.PixelPosition(pos, s.dims)
	}
	return s.apply(ctx, "remove", history.NewRemoveNearest(kind, pos, s.svc.deps.Config.RemoveRadiusPx))
}

// RemoveAt removes marker idx of kind.
func (s *Session) RemoveAt(ctx context.Context, kind core.MarkerKind, idx int) (View, error) {
	return s.apply(ctx, "remove", history.NewRemoveAt(kind, idx))
}

// Move drags marker idx of kind to pos (pixels).
func (s *Session) Move(ctx context.Context, kind core.MarkerKind, idx int, pos core.Position) (View, error) {
	pos.Space = core.SpacePixel
	if err := validate.PixelPosition(pos, s.dims); err != nil {
		return View{}, err
	}
	return s.apply(ctx, "move", history.NewMoveMarker(kind, idx, pos))
}

// AssignWeapon sets the weapon of gun.
func (s *Session) AssignWeapon(ctx context.Context, gun int, weaponID string) (View, error) {
	if err := validate.WeaponID(s.svc.deps.Catalog, weaponID); err != nil {
		return View{}, err
	}
	if weaponID == "" {
		weaponID = core.UnassignedWeapon
	}
	return s.apply(ctx, "weapon", history.NewAssignWeapon(gun, weaponID))
}

// SetPairing points gun at target, or unpairs it with core.NoTarget.
func (s *Session) SetPairing(ctx context.Context, gun, target int) (View, error) {
	return s.apply(ctx, "pairing", history.NewSetPairing(gun, target))
}

// SetWind changes the plan's wind.
func (s *Session) SetWind(ctx context.Context, w core.WindState) (View, error) {
	if err := validate.Wind(w); err != nil {
		return View{}, err
	}
	return s.apply(ctx, "wind", history.NewSetWind(w))
}

// Undo reverts the last edit. With nothing to undo the state is returned unchanged.
func (s *Session) Undo(ctx context.Context) (View, error) {
	return s.step(ctx, "undo", s.hist.Undo)
}

// Redo re-applies the last undone edit.
func (s *Session) Redo(ctx context.Context) (View, error) {
	return s.step(ctx, "redo", s.hist.Redo)
}

func (s *Session) step(ctx context.Context, op string, fn func() (history.Command, error)) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.svc.deps.Now()

	c, err := fn()
	if err != nil {
		s.log.ErrorContext(s.ctx(ctx), "History step failed", "op", op, "error", err)
		return View{}, err
	}
	if c == nil {
		return s.view(""), nil
	}
	s.seq++
	s.svc.deps.Metrics.Edit(ctx, op)
	s.log.DebugContext(s.ctx(ctx), "History step", "op", op, "command", c.String())
	return s.publish(op), nil
}

func (s *Session) apply(ctx context.Context, op string, c history.Command) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.svc.deps.Now()

	if err := s.hist.Apply(c); err != nil {
		return View{}, err
	}
	s.seq++
	s.svc.deps.Metrics.Edit(ctx, op)
	s.log.DebugContext(s.ctx(ctx), "Edit applied", "op", op, "command", c.String())
	return s.publish(op), nil
}

// Save stores the session as a new plan and returns it.
func (s *Session) Save(ctx context.Context) (*core.PlanRecord, error) {
	s.mu.Lock()
	rec := &core.PlanRecord{Name: s.name, MapID: s.mapID}
	s.hist.Model().ApplyTo(rec, s.dims)
	s.lastUsed = s.svc.deps.Now()
	s.mu.Unlock()

	saved, err := s.svc.CreatePlan(s.ctx(ctx), rec)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(s.ctx(ctx), "Session saved", "planId", saved.ID)
	return saved, nil
}

// Subscribe returns a channel receiving the view after every change, and a
// function to stop receiving. The channel is closed on cancel or when the
// session ends.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// close ends every subscription.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// publish builds the view and sends it to subscribers. Caller holds mu.
func (s *Session) publish(op string) View {
	v := s.view(op)
	for _, ch := range s.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// full: drop the oldest update
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
	return v
}

// view builds the client state. Caller holds mu.
func (s *Session) view(op string) View {
	m := s.hist.Model()
	return View{
		ID:         s.ID,
		Name:       s.name,
		MapID:      s.mapID,
		Dimensions: s.dims,
		Plan:       m.Snapshot(),
		Solutions:  s.solutions(m),
		CanUndo:    s.hist.CanUndo(),
		CanRedo:    s.hist.CanRedo(),
		Seq:        s.seq,
		Op:         op,
	}
}

// solutions computes the firing data of every gun in m.
func (s *Session) solutions(m *plan.Model) []GunSolution {
	layout := s.svc.deps.Grid
	guns := m.Guns()
	targets := m.Targets()
	pairing := m.Pairing()
	wind := m.Wind()

	out := make([]GunSolution, 0, len(guns))
	for g, gun := range guns {
		gs := GunSolution{
			Gun:      g,
			Target:   pairing[g],
			WeaponID: gun.WeaponID,
			GunGrid:  grid.PixelToGridCode(gun.Position, s.dims, layout),
		}
		if gs.Target == core.NoTarget || gs.Target >= len(targets) {
			out = append(out, gs)
			continue
		}
		target := targets[gs.Target].Position
		gs.TargetGrid = grid.PixelToGridCode(target, s.dims, layout)

		if w, ok := s.svc.deps.Catalog.Weapon(gun.WeaponID); ok {
			sol := ballistics.Solve(
				grid.PixelToMeters(gun.Position, s.dims),
				grid.PixelToMeters(target, s.dims),
				w, wind,
			)
			gs.Solution = &sol
			gs.AccuracyRadiusPx = grid.MetersToPixelDistance(sol.AccuracyRadius, s.dims)
		}
		out = append(out, gs)
	}
	return out
}
