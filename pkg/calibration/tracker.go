// Package calibration widens the rest and bottom extremes of hall-effect keys from live samples.
package calibration

import "github.com/itohio/hekeypad/pkg/key"

// Tracker updates the calibration fields of key records in place.
// With Inverted unset, readings decrease while a key is pressed.
type Tracker struct {
	Deadzone uint16
	Inverted bool
}

// New creates a tracker from the engine settings.
func New(s key.Settings) Tracker {
	return Tracker{
		Deadzone: s.CalibrationDeadzone,
		Inverted: s.InvertSensor,
	}
}

// Observe widens the calibrated range of cfg to include v and reports whether cfg changed.
// The range never shrinks here; only Reset can narrow it.
func (t Tracker) Observe(cfg *key.HEConfig, v uint16) bool {
	rest, bottom := cfg.RestPosition, cfg.BottomPosition
	if t.lessPressed(v, rest) {
		rest = v
	}
	if t.lessPressed(bottom, v) {
		bottom = v
	}
	if rest == cfg.RestPosition && bottom == cfg.BottomPosition {
		return false
	}
	cfg.RestPosition, cfg.BottomPosition = rest, bottom
	return true
}

// Reference returns the range used for distance mapping: the rest extreme moved by the
// deadzone toward the pressed side, never past bottom.
func (t Tracker) Reference(cfg *key.HEConfig) (rest, bottom uint16) {
	rest, bottom = cfg.RestPosition, cfg.BottomPosition
	if t.Inverted {
		if uint32(rest)+uint32(t.Deadzone) < uint32(bottom) {
			return rest + t.Deadzone, bottom
		}
		return bottom, bottom
	}
	if uint32(rest) > uint32(bottom)+uint32(t.Deadzone) {
		return rest - t.Deadzone, bottom
	}
	return bottom, bottom
}

// Reset restores the calibration of cfg from def.
func (t Tracker) Reset(cfg *key.HEConfig, def key.HEConfig) {
	cfg.RestPosition, cfg.BottomPosition = def.RestPosition, def.BottomPosition
}

// lessPressed reports whether a is closer to the unpressed extreme than b.
func (t Tracker) lessPressed(a, b uint16) bool {
	if t.Inverted {
		return a < b
	}
	return a > b
}
