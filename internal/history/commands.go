package history

import (
	"errors"
	"fmt"
	"math"

	"github.com/foxholetools/artyplanner/internal/plan"
	"github.com/foxholetools/artyplanner/pkg/core"
)

// ErrNothingToRemove is returned by a remove command that found no marker.
// History does not record it.
var ErrNothingToRemove = errors.New("no marker to remove")

// Command is one reversible edit of a plan.Model.
//
// Apply is called once when the edit is made and again on every redo. It
// captures whatever it overwrites so Revert can restore it exactly.
type Command interface {
	Apply(m *plan.Model) error
	Revert(m *plan.Model) error
	String() string
}

// PlaceMarker adds a gun, target or spotter.
type PlaceMarker struct {
	Kind     core.MarkerKind
	Position core.Position
	WeaponID string

	applied bool
	placed  plan.Removed
}

// NewPlaceMarker builds a placement command. weaponID is ignored for targets and spotters.
func NewPlaceMarker(kind core.MarkerKind, pos core.Position, weaponID string) *PlaceMarker {
	return &PlaceMarker{Kind: kind, Position: pos, WeaponID: weaponID}
}

// Index is the index the marker was placed at. Valid after Apply.
func (c *PlaceMarker) Index() int { return c.placed.Index }

func (c *PlaceMarker) Apply(m *plan.Model) error {
	if c.applied {
		// Redo replays the recorded outcome instead of re-running auto-pairing.
		return m.Reinsert(c.placed)
	}

	c.placed = plan.Removed{Kind: c.Kind, Position: c.Position}
	switch c.Kind {
	case core.KindGun:
		c.placed.Index = m.PlaceGun(c.Position, c.WeaponID)
		c.placed.WeaponID = c.WeaponID
		c.placed.Slot, _ = m.PairedTarget(c.placed.Index)
	case core.KindTarget:
		idx, gun := m.PlaceTarget(c.Position)
		c.placed.Index = idx
		if gun >= 0 {
			c.placed.PairedGuns = []int{gun}
		}
	case core.KindSpotter:
		c.placed.Index = m.PlaceSpotter(c.Position)
	default:
		return fmt.Errorf("place: unknown marker kind %v", c.Kind)
	}
	c.applied = true
	return nil
}

func (c *PlaceMarker) Revert(m *plan.Model) error {
	_, err := m.RemoveAt(c.Kind, c.placed.Index)
	return err
}

func (c *PlaceMarker) String() string {
	return fmt.Sprintf("place %s", c.Kind)
}

// RemoveMarker removes either the marker nearest a point or a marker by index.
type RemoveMarker struct {
	Kind core.MarkerKind

	near   *core.Position
	radius float64
	index  int

	applied bool
	removed plan.Removed
}

// NewRemoveNearest removes the marker of kind nearest pos within radius pixels.
// A radius <= 0 means unlimited.
func NewRemoveNearest(kind core.MarkerKind, pos core.Position, radius float64) *RemoveMarker {
	if radius <= 0 {
		radius = math.Inf(1)
	}
	return &RemoveMarker{Kind: kind, near: &pos, radius: radius}
}

// NewRemoveAt removes marker idx of kind.
func NewRemoveAt(kind core.MarkerKind, idx int) *RemoveMarker {
	return &RemoveMarker{Kind: kind, index: idx}
}

// Removed describes what was taken out. Valid after Apply.
func (c *RemoveMarker) Removed() plan.Removed { return c.removed }

func (c *RemoveMarker) Apply(m *plan.Model) error {
	idx := c.index
	if c.applied {
		idx = c.removed.Index
	} else if c.near != nil {
		found, ok := m.Nearest(*c.near, c.Kind, c.radius)
		if !ok {
			return ErrNothingToRemove
		}
		idx = found
	}

	r, err := m.RemoveAt(c.Kind, idx)
	if err != nil {
		return err
	}
	c.removed = r
	c.applied = true
	return nil
}

func (c *RemoveMarker) Revert(m *plan.Model) error {
	return m.Reinsert(c.removed)
}

func (c *RemoveMarker) String() string {
	return fmt.Sprintf("remove %s", c.Kind)
}

// MoveMarker relocates one marker.
type MoveMarker struct {
	Kind  core.MarkerKind
	Index int
	To    core.Position

	from core.Position
}

func NewMoveMarker(kind core.MarkerKind, idx int, to core.Position) *MoveMarker {
	return &MoveMarker{Kind: kind, Index: idx, To: to}
}

func (c *MoveMarker) Apply(m *plan.Model) error {
	from, err := m.Move(c.Kind, c.Index, c.To)
	if err != nil {
		return err
	}
	c.from = from
	return nil
}

func (c *MoveMarker) Revert(m *plan.Model) error {
	_, err := m.Move(c.Kind, c.Index, c.from)
	return err
}

func (c *MoveMarker) String() string {
	return fmt.Sprintf("move %s %d", c.Kind, c.Index)
}

// AssignWeapon changes the weapon of one gun.
type AssignWeapon struct {
	Gun      int
	WeaponID string

	prev string
}

func NewAssignWeapon(gun int, weaponID string) *AssignWeapon {
	return &AssignWeapon{Gun: gun, WeaponID: weaponID}
}

func (c *AssignWeapon) Apply(m *plan.Model) error {
	prev, err := m.SetWeapon(c.Gun, c.WeaponID)
	if err != nil {
		return err
	}
	c.prev = prev
	return nil
}

func (c *AssignWeapon) Revert(m *plan.Model) error {
	_, err := m.SetWeapon(c.Gun, c.prev)
	return err
}

func (c *AssignWeapon) String() string {
	return fmt.Sprintf("assign weapon %q to gun %d", c.WeaponID, c.Gun)
}

// SetPairing overwrites one gun's pairing slot.
type SetPairing struct {
	Gun    int
	Target int

	prev int
}

// NewSetPairing pairs gun with target; core.NoTarget clears the slot.
func NewSetPairing(gun, target int) *SetPairing {
	return &SetPairing{Gun: gun, Target: target}
}

func (c *SetPairing) Apply(m *plan.Model) error {
	prev, err := m.PairedTarget(c.Gun)
	if err != nil {
		return err
	}
	if err := m.SetPairing(c.Gun, c.Target); err != nil {
		return err
	}
	c.prev = prev
	return nil
}

func (c *SetPairing) Revert(m *plan.Model) error {
	return m.SetPairing(c.Gun, c.prev)
}

func (c *SetPairing) String() string {
	return fmt.Sprintf("pair gun %d with target %d", c.Gun, c.Target)
}

// SetWind replaces the plan's wind.
type SetWind struct {
	Wind core.WindState

	prev core.WindState
}

func NewSetWind(w core.WindState) *SetWind {
	return &SetWind{Wind: w}
}

func (c *SetWind) Apply(m *plan.Model) error {
	c.prev = m.Wind()
	m.SetWind(c.Wind)
	return nil
}

func (c *SetWind) Revert(m *plan.Model) error {
	m.SetWind(c.prev)
	return nil
}

func (c *SetWind) String() string {
	return fmt.Sprintf("set wind %.0f° strength %d", c.Wind.Direction, c.Wind.Strength)
}
