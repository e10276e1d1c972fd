package planner

import (
	"context"
	"testing"
	"time"

	"github.com/foxholetools/artyplanner/internal/history"
	"github.com/foxholetools/artyplanner/internal/validate"
	"github.com/foxholetools/artyplanner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Registry, *Session, *testClock) {
	t.Helper()
	svc, clock := newTestService(t, nil)
	reg := NewRegistry(svc, time.Hour)
	t.Cleanup(reg.Close)

	s, err := reg.Create(context.Background(), testMap, "Ops")
	require.NoError(t, err)
	return reg, s, clock
}

func TestRegistry_Create(t *testing.T) {
	svc, _ := newTestService(t, nil)
	reg := NewRegistry(svc, time.Hour)
	defer reg.Close()

	_, err := reg.Create(context.Background(), "nowhere.webp", "")
	assert.ErrorIs(t, err, validate.ErrInvalidReference)

	s, err := reg.Create(context.Background(), testMap, "")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	v := s.View()
	assert.Equal(t, testMap, v.MapID)
	assert.Equal(t, core.DefaultMapDimensions, v.Dimensions)
	assert.Empty(t, v.Solutions)
	assert.False(t, v.CanUndo)
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg, _, _ := newTestSession(t)
	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, reg.Remove("nope"), ErrSessionNotFound)
}

func TestSession_PlaceComputesSolutions(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Place(ctx, core.KindTarget, core.Px(100, 500), "")
	require.NoError(t, err)
	v, err := s.Place(ctx, core.KindGun, core.Px(100, 1000), "storm-cannon")
	require.NoError(t, err)

	assert.Equal(t, []int{0}, v.Plan.Pairing)
	require.Len(t, v.Solutions, 1)
	gs := v.Solutions[0]
	assert.Equal(t, 0, gs.Target)
	assert.Equal(t, "storm-cannon", gs.WeaponID)
	assert.NotEmpty(t, gs.GunGrid)
	assert.NotEmpty(t, gs.TargetGrid)
	require.NotNil(t, gs.Solution)
	assert.InDelta(t, 0, gs.Solution.Azimuth, 1e-9)
	assert.InDelta(t, 500*core.DefaultMapDimensions.MeterHeight/core.DefaultMapDimensions.PixelHeight, gs.Solution.Distance, 1e-9)
	assert.True(t, gs.Solution.InRange)
	assert.Greater(t, gs.AccuracyRadiusPx, 0.0)
	assert.Equal(t, uint64(2), v.Seq)
	assert.Equal(t, "place", v.Op)
	assert.True(t, v.CanUndo)
}

func TestSession_UnassignedGunHasNoSolution(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Place(ctx, core.KindTarget, core.Px(100, 500), "")
	require.NoError(t, err)
	v, err := s.Place(ctx, core.KindGun, core.Px(100, 1000), "")
	require.NoError(t, err)

	require.Len(t, v.Solutions, 1)
	assert.Equal(t, core.UnassignedWeapon, v.Solutions[0].WeaponID)
	assert.Nil(t, v.Solutions[0].Solution)
	assert.NotEmpty(t, v.Solutions[0].TargetGrid)
}

func TestSession_PlaceRejects(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Place(ctx, core.KindGun, core.Px(-5, 10), "storm-cannon")
	assert.ErrorIs(t, err, validate.ErrInvalidGeometry)

	_, err = s.Place(ctx, core.KindGun, core.Px(5, 10), "trebuchet")
	assert.ErrorIs(t, err, validate.ErrInvalidReference)

	assert.False(t, s.View().CanUndo, "rejected edits are not recorded")
}

func TestSession_UndoRedo(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	empty := s.View().Plan
	_, err := s.Place(ctx, core.KindSpotter, core.Px(10, 10), "")
	require.NoError(t, err)
	placed := s.View().Plan

	v, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, empty, v.Plan)
	assert.True(t, v.CanRedo)
	assert.Equal(t, "undo", v.Op)

	v, err = s.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, placed, v.Plan)
	assert.False(t, v.CanRedo)

	// nothing left to redo: state unchanged, no new sequence number
	before := v.Seq
	v, err = s.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, v.Seq)
}

func TestSession_RemoveNearest(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Place(ctx, core.KindTarget, core.Px(400, 400), "")
	require.NoError(t, err)

	_, err = s.RemoveNearest(ctx, core.KindTarget, core.Px(800, 800))
	assert.ErrorIs(t, err, history.ErrNothingToRemove, "outside the remove radius")

	v, err := s.RemoveNearest(ctx, core.KindTarget, core.Px(410, 405))
	require.NoError(t, err)
	assert.Empty(t, v.Plan.Targets)
}

func TestSession_EditsAndWind(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Place(ctx, core.KindTarget, core.Px(100, 500), "")
	require.NoError(t, err)
	_, err = s.Place(ctx, core.KindTarget, core.Px(300, 500), "")
	require.NoError(t, err)
	_, err = s.Place(ctx, core.KindGun, core.Px(100, 1000), core.UnassignedWeapon)
	require.NoError(t, err)

	v, err := s.AssignWeapon(ctx, 0, "storm-cannon")
	require.NoError(t, err)
	require.NotNil(t, v.Solutions[0].Solution)

	v, err = s.SetPairing(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Solutions[0].Target)

	_, err = s.SetPairing(ctx, 0, 7)
	assert.ErrorIs(t, err, validate.ErrInvalidReference)

	v, err = s.Move(ctx, core.KindTarget, 1, core.Px(300, 450))
	require.NoError(t, err)
	assert.Equal(t, core.Px(300, 450), v.Plan.Targets[1].Position)

	_, err = s.SetWind(ctx, core.WindState{Direction: 10, Strength: 8})
	assert.ErrorIs(t, err, validate.ErrInvalidRange)

	v, err = s.SetWind(ctx, core.WindState{Direction: 270, Strength: 5})
	require.NoError(t, err)
	require.NotNil(t, v.Solutions[0].Solution.Wind)
	// wind from the west pushes east, so the aim point moves west of the target
	assert.Less(t, v.Solutions[0].Solution.Wind.Aim.X, 300*core.DefaultMapDimensions.MeterWidth/core.DefaultMapDimensions.PixelWidth)

	v, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.WindState{}, v.Plan.Wind)
	assert.Nil(t, v.Solutions[0].Solution.Wind)

	v, err = s.RemoveAt(ctx, core.KindGun, 0)
	require.NoError(t, err)
	assert.Empty(t, v.Solutions)
}

func TestSession_Rename(t *testing.T) {
	_, s, _ := newTestSession(t)

	v, err := s.Rename("Night shift")
	require.NoError(t, err)
	assert.Equal(t, "Night shift", v.Name)
	assert.False(t, v.CanUndo)

	_, err = s.Rename(string(make([]rune, 201)))
	assert.ErrorIs(t, err, validate.ErrInvalidRange)
}

func TestSession_Subscribe(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	updates, cancel := s.Subscribe()

	_, err := s.Place(ctx, core.KindSpotter, core.Px(10, 10), "")
	require.NoError(t, err)

	select {
	case v := <-updates:
		assert.Equal(t, "place", v.Op)
		assert.Len(t, v.Plan.Spotters, 1)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	cancel()
	cancel()
	_, ok := <-updates
	assert.False(t, ok, "channel closed after cancel")
}

func TestSession_SlowSubscriberKeepsLatest(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	updates, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		_, err := s.Place(ctx, core.KindSpotter, core.Px(float64(i), 10), "")
		require.NoError(t, err)
	}

	var last View
	for i := 0; i < subscriberBuffer; i++ {
		last = <-updates
	}
	assert.Equal(t, uint64(subscriberBuffer+5), last.Seq)
	assert.Empty(t, updates)
}

func TestSession_SaveAndReopen(t *testing.T) {
	reg, s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Place(ctx, core.KindTarget, core.Px(100, 500), "")
	require.NoError(t, err)
	_, err = s.Place(ctx, core.KindGun, core.Px(100, 1000), "storm-cannon")
	require.NoError(t, err)
	_, err = s.Place(ctx, core.KindGun, core.Px(200, 1000), "")
	require.NoError(t, err)
	_, err = s.SetWind(ctx, core.WindState{Direction: 45, Strength: 1})
	require.NoError(t, err)

	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ops", saved.Name)
	assert.Equal(t, []string{"storm-cannon", core.UnassignedWeapon}, saved.WeaponIDs)
	require.Len(t, saved.GunTargetIndices, 2)
	assert.Equal(t, 0, *saved.GunTargetIndices[0])
	assert.Nil(t, saved.GunTargetIndices[1])

	reopened, err := reg.Open(ctx, saved.ID)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, reopened.ID)

	a, b := s.View(), reopened.View()
	assert.Equal(t, a.Plan.Pairing, b.Plan.Pairing)
	assert.Equal(t, a.Plan.Wind, b.Plan.Wind)
	require.Len(t, b.Plan.Guns, 2)
	assert.InDelta(t, 100, b.Plan.Guns[0].Position.X, 1e-6)
	assert.InDelta(t, 1000, b.Plan.Guns[0].Position.Y, 1e-6)
	assert.False(t, b.CanUndo, "reopened sessions start with empty history")
}

func TestSession_PlacementsTracked(t *testing.T) {
	_, s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Place(ctx, core.KindGun, core.Px(100, 1000), "storm-cannon")
	require.NoError(t, err)
	_, err = s.Place(ctx, core.KindTarget, core.Px(100, 500), "")
	require.NoError(t, err)

	st, err := s.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.GunTotals.Total)
	assert.Equal(t, int64(1), st.MarkerPlacements.Targets)
}

func TestRegistry_Reap(t *testing.T) {
	reg, s, clock := newTestSession(t)
	updates, _ := s.Subscribe()

	other, err := reg.Create(context.Background(), testMap, "")
	require.NoError(t, err)

	clock.Advance(50 * time.Minute)
	_, err = other.Place(context.Background(), core.KindSpotter, core.Px(1, 1), "")
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, reg.Reap(clock.Now()))
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, ok := <-updates
	assert.False(t, ok)

	_, err = reg.Get(other.ID)
	assert.NoError(t, err)
}

func TestRegistry_CloseEndsSubscriptions(t *testing.T) {
	svc, _ := newTestService(t, nil)
	reg := NewRegistry(svc, time.Hour)
	reg.Start()

	s, err := reg.Create(context.Background(), testMap, "")
	require.NoError(t, err)
	updates, _ := s.Subscribe()

	reg.Close()
	reg.Close()
	assert.Equal(t, 0, reg.Len())
	_, ok := <-updates
	assert.False(t, ok)

	ch, cancel := s.Subscribe()
	cancel()
	_, ok = <-ch
	assert.False(t, ok, "subscribing to a closed session yields a closed channel")
}
