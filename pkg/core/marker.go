// pkg/core/marker.go
package core

import (
	"fmt"
	"strings"
)

// MarkerKind selects between the three marker types.
type MarkerKind int

const (
	KindGun MarkerKind = iota
	KindTarget
	KindSpotter
)

func (k MarkerKind) String() string {
	switch k {
	case KindGun:
		return "gun"
	case KindTarget:
		return "target"
	case KindSpotter:
		return "spotter"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseMarkerKind accepts "gun", "target" or "spotter" in any case.
func ParseMarkerKind(s string) (MarkerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gun":
		return KindGun, nil
	case "target":
		return KindTarget, nil
	case "spotter":
		return KindSpotter, nil
	}
	return 0, fmt.Errorf("unknown marker kind %q", s)
}

// Gun is a placed artillery piece. WeaponID may be empty or UnassignedWeapon.
type Gun struct {
	Position Position `json:"position"`
	WeaponID string   `json:"weaponId"`
}

// Target is a point to be fired upon.
type Target struct {
	Position Position `json:"position"`
}

// Spotter is an observer marker with no effect on solutions.
type Spotter struct {
	Position Position `json:"position"`
}

// NoTarget is the pairing slot value of an unpaired gun.
const NoTarget = -1

// PlacementCount is an aggregated usage counter for one marker kind and weapon.
// WeaponID is empty for targets and spotters.
type PlacementCount struct {
	Kind     MarkerKind `json:"kind"`
	WeaponID string     `json:"weaponId,omitempty"`
	Count    int64      `json:"count"`
}

// MarshalText encodes the kind by name.
func (k MarkerKind) MarshalText() ([]byte, error) {
	switch k {
	case KindGun, KindTarget, KindSpotter:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown marker kind %d", int(k))
}

// UnmarshalText accepts the names ParseMarkerKind does.
func (k *MarkerKind) UnmarshalText(b []byte) error {
	v, err := ParseMarkerKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
