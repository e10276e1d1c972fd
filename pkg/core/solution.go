// pkg/core/solution.go
package core

// WindState is the wind the user reads off the in-game flag.
// Direction is where the wind blows FROM, in degrees; Strength is 0..5.
type WindState struct {
	Direction float64 `json:"direction"`
	Strength  int     `json:"strength"`
}

// Calm reports whether the wind has no effect on fire.
func (w WindState) Calm() bool {
	return w.Strength == 0
}

// FiringSolution is the derived result for one gun/target pair. Never stored.
type FiringSolution struct {
	Azimuth        float64         `json:"azimuth"`
	Distance       float64         `json:"distance"`
	InRange        bool            `json:"inRange"`
	AccuracyRadius float64         `json:"accuracyRadius"`
	RangeFraction  float64         `json:"rangeFraction"`
	Wind           *WindCorrection `json:"wind,omitempty"`
}

// WindCorrection holds the wind-compensated aim. Present only when wind strength > 0.
type WindCorrection struct {
	PushDirection float64  `json:"pushDirection"`
	DriftMeters   float64  `json:"driftMeters"`
	Offset        Vector   `json:"offset"`
	Aim           Position `json:"aim"`
	Azimuth       float64  `json:"azimuth"`
	Distance      float64  `json:"distance"`
}

// AimAzimuth returns the azimuth to lay the gun on, compensated if wind applies.
func (s FiringSolution) AimAzimuth() float64 {
	if s.Wind != nil {
		return s.Wind.Azimuth
	}
	return s.Azimuth
}

// AimDistance returns the distance to dial in, compensated if wind applies.
func (s FiringSolution) AimDistance() float64 {
	if s.Wind != nil {
		return s.Wind.Distance
	}
	return s.Distance
}
