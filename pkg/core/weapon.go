// pkg/core/weapon.go
package core

import (
	"strings"
	"unicode"
)

// Faction owning a weapon.
type Faction string

const (
	FactionColonial Faction = "Colonial"
	FactionWarden   Faction = "Warden"
	FactionBoth     Faction = "Both"
)

// Serves reports whether a weapon of faction f is available to side.
func (f Faction) Serves(side Faction) bool {
	return f == FactionBoth || side == FactionBoth || f == side
}

// UnassignedWeapon marks a gun with no weapon chosen yet.
const UnassignedWeapon = "unassigned"

// WeaponSpec is an immutable catalogue entry.
// AccRadius and WindDrift hold the values at MinRange and MaxRange.
type WeaponSpec struct {
	ID          string     `json:"id,omitempty"`
	DisplayName string     `json:"displayName"`
	Faction     Faction    `json:"faction"`
	MinRange    float64    `json:"minRange"`
	MaxRange    float64    `json:"maxRange"`
	AccRadius   [2]float64 `json:"accRadius"`
	WindDrift   [2]float64 `json:"windDrift"`
}

// Slug turns a display name into a URL-safe identifier, e.g. "Storm Cannon" -> "storm-cannon".
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	return strings.Join(parts, "-")
}

// IsUnassigned reports whether id means "no weapon".
func IsUnassigned(id string) bool {
	return id == "" || id == UnassignedWeapon
}

// MapSpec describes one map image in the catalogue. ID is the image file name.
type MapSpec struct {
	ID          string        `json:"fileName"`
	DisplayName string        `json:"displayName"`
	ImageType   string        `json:"type"`
	Active      bool          `json:"active"`
	Dimensions  MapDimensions `json:"dimensions"`
}
