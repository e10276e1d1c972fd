// Package catalog loads the weapon and map lists the planner works with.
//
// Both lists are read once at startup and never change afterwards, so a
// *Catalog can be shared by every session without locking.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/foxholetools/artyplanner/pkg/core"
)

const (
	WeaponsFile = "weapons.json"
	MapsFile    = "maps.json"
)

//go:embed assets/*.json
var defaultAssets embed.FS

// Catalog is an immutable set of weapons and maps keyed by ID.
type Catalog struct {
	weapons     map[string]core.WeaponSpec
	weaponOrder []string
	maps        map[string]core.MapSpec
	mapOrder    []string
}

// Default returns the catalogue compiled into the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultAssets, "assets")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// Load reads weapons.json and maps.json from dir. A file missing from dir
// falls back to the built-in copy.
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		return Default()
	}
	sub, err := fs.Sub(defaultAssets, "assets")
	if err != nil {
		return nil, err
	}
	return LoadFS(overlayFS{primary: os.DirFS(filepath.Clean(dir)), fallback: sub})
}

// LoadFS reads both catalogue files from fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var weapons []core.WeaponSpec
	if err := readJSON(fsys, WeaponsFile, &weapons); err != nil {
		return nil, err
	}
	var maps []core.MapSpec
	if err := readJSON(fsys, MapsFile, &maps); err != nil {
		return nil, err
	}
	return New(weapons, maps)
}

// New builds a catalogue from explicit lists. Weapons without an ID get the
// slug of their display name; maps without dimensions get the stock size.
func New(weapons []core.WeaponSpec, maps []core.MapSpec) (*Catalog, error) {
	c := &Catalog{
		weapons: make(map[string]core.WeaponSpec, len(weapons)),
		maps:    make(map[string]core.MapSpec, len(maps)),
	}

	for _, w := range weapons {
		if w.ID == "" {
			w.ID = core.Slug(w.DisplayName)
		}
		if w.ID == "" || w.ID == core.UnassignedWeapon {
			return nil, fmt.Errorf("weapon %q has no usable id", w.DisplayName)
		}
		if w.MaxRange < w.MinRange {
			return nil, fmt.Errorf("weapon %q: max range %.0f below min range %.0f", w.ID, w.MaxRange, w.MinRange)
		}
		if _, dup := c.weapons[w.ID]; dup {
			return nil, fmt.Errorf("duplicate weapon id %q", w.ID)
		}
		c.weapons[w.ID] = w
		c.weaponOrder = append(c.weaponOrder, w.ID)
	}

	for _, m := range maps {
		if m.ID == "" {
			return nil, fmt.Errorf("map %q has no file name", m.DisplayName)
		}
		if m.Dimensions == (core.MapDimensions{}) {
			m.Dimensions = core.DefaultMapDimensions
		}
		if _, dup := c.maps[m.ID]; dup {
			return nil, fmt.Errorf("duplicate map id %q", m.ID)
		}
		c.maps[m.ID] = m
		c.mapOrder = append(c.mapOrder, m.ID)
	}

	return c, nil
}

// Weapon looks up a weapon by ID.
func (c *Catalog) Weapon(id string) (core.WeaponSpec, bool) {
	w, ok := c.weapons[id]
	return w, ok
}

// Map looks up a map by ID.
func (c *Catalog) Map(id string) (core.MapSpec, bool) {
	m, ok := c.maps[id]
	return m, ok
}

// Weapons lists weapons in file order, optionally filtered by faction.
// An empty faction returns every weapon.
func (c *Catalog) Weapons(faction core.Faction) []core.WeaponSpec {
	out := make([]core.WeaponSpec, 0, len(c.weaponOrder))
	for _, id := range c.weaponOrder {
		w := c.weapons[id]
		if faction == "" || w.Faction.Serves(faction) {
			out = append(out, w)
		}
	}
	return out
}

// Maps lists maps in file order.
func (c *Catalog) Maps(activeOnly bool) []core.MapSpec {
	out := make([]core.MapSpec, 0, len(c.mapOrder))
	for _, id := range c.mapOrder {
		m := c.maps[id]
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	return out
}

// WeaponIDs returns every weapon ID, sorted.
func (c *Catalog) WeaponIDs() []string {
	ids := slices.Clone(c.weaponOrder)
	slices.Sort(ids)
	return ids
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// overlayFS serves files from primary, falling back when they do not exist there.
type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return o.fallback.Open(name)
	}
	return f, err
}
