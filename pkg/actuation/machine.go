// Package actuation decides when a hall-effect key is pressed or released from its travel distance.
package actuation

import "github.com/itohio/hekeypad/pkg/key"

// Mode is the actuation model selected by a key record.
type Mode uint8

const (
	ModeHysteresis Mode = iota
	ModeRapidTrigger
	ModeContinuousRapidTrigger
)

func (m Mode) String() string {
	switch m {
	case ModeHysteresis:
		return "hysteresis"
	case ModeRapidTrigger:
		return "rapid-trigger"
	case ModeContinuousRapidTrigger:
		return "continuous-rapid-trigger"
	}
	return "unknown"
}

// ModeOf returns the mode configured in cfg. Continuous rapid trigger only applies when rapid
// trigger itself is enabled.
func ModeOf(cfg *key.HEConfig) Mode {
	switch {
	case !cfg.RapidTrigger:
		return ModeHysteresis
	case cfg.ContinuousRapidTrigger:
		return ModeContinuousRapidTrigger
	}
	return ModeRapidTrigger
}

// Transition is the outcome of one tick.
type Transition uint8

const (
	None Transition = iota
	Press
	Release
)

func (t Transition) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	}
	return "none"
}

// Policy holds the engine-wide actuation parameters.
type Policy struct {
	// ContinuousThreshold is the distance at or below which continuous rapid trigger treats a
	// key as fully released and pins its tracked extremum.
	ContinuousThreshold uint16
}

// NewPolicy creates a policy from the engine settings.
func NewPolicy(s key.Settings) Policy {
	return Policy{ContinuousThreshold: s.ContinuousThreshold}
}

// State is the runtime state of one key.
type State struct {
	Distance uint16 // last distance seen
	Pressed  bool
	Extremum uint16 // peak while pressed, trough while released
	Armed    bool   // rapid trigger zone entered through the actuation point
	Mode     Mode
	seeded   bool
}

// Machine is the actuation state machine of one hall-effect key.
type Machine struct {
	state State
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.state
}

// Pressed reports the committed state.
func (m *Machine) Pressed() bool {
	return m.state.Pressed
}

// Reset returns the machine to its boot state.
func (m *Machine) Reset() {
	m.state = State{}
}

// Update feeds the distance of the current tick and returns the transition it causes.
// cfg is read fresh on every call. The new state is built on a copy and committed with a
// single assignment, so an observer never sees the pressed flag and the extremum disagree.
func (m *Machine) Update(d uint16, cfg *key.HEConfig, p Policy) Transition {
	s := m.state

	mode := ModeOf(cfg)
	if !s.seeded || s.Mode != mode {
		s.Mode = mode
		s.Extremum = d
		s.Armed = false
		s.seeded = true
	}

	var t Transition
	switch mode {
	case ModeHysteresis:
		t = hysteresis(&s, d, cfg)
	case ModeRapidTrigger:
		t = rapidTrigger(&s, d, cfg)
	case ModeContinuousRapidTrigger:
		t = continuousRapidTrigger(&s, d, cfg, p)
	}
	s.Distance = d

	m.state = s
	return t
}

func hysteresis(s *State, d uint16, cfg *key.HEConfig) Transition {
	s.Extremum = d
	switch {
	case !s.Pressed && d >= cfg.UpperHysteresis:
		s.Pressed = true
		return Press
	case s.Pressed && d <= cfg.LowerHysteresis:
		s.Pressed = false
		return Release
	}
	return None
}

// rapidTrigger arms when the key passes the upper hysteresis (pressing it) and disarms when the
// key returns to the lower hysteresis (releasing it). While armed, actuation is relative.
func rapidTrigger(s *State, d uint16, cfg *key.HEConfig) Transition {
	if d <= cfg.LowerHysteresis {
		s.Armed = false
		s.Extremum = d
		if s.Pressed {
			s.Pressed = false
			return Release
		}
		return None
	}

	if !s.Armed {
		if d < cfg.UpperHysteresis {
			return None
		}
		s.Armed = true
		s.Extremum = d
		if !s.Pressed {
			s.Pressed = true
			return Press
		}
		return None
	}

	return relative(s, d, cfg)
}

// continuousRapidTrigger is relative over the whole travel. Near full release the key is
// released and the extremum is pinned to the current distance, so it cannot drift away from
// where the key actually rests.
func continuousRapidTrigger(s *State, d uint16, cfg *key.HEConfig, p Policy) Transition {
	if d <= p.ContinuousThreshold {
		s.Extremum = d
		if s.Pressed {
			s.Pressed = false
			return Release
		}
		return None
	}
	return relative(s, d, cfg)
}

func relative(s *State, d uint16, cfg *key.HEConfig) Transition {
	if s.Pressed {
		if d > s.Extremum {
			s.Extremum = d
			return None
		}
		if uint32(d)+uint32(cfg.ReleaseSensitivity) <= uint32(s.Extremum) {
			s.Pressed = false
			s.Extremum = d
			return Release
		}
		return None
	}

	if d < s.Extremum {
		s.Extremum = d
		return None
	}
	if uint32(d) >= uint32(s.Extremum)+uint32(cfg.PressSensitivity) {
		s.Pressed = true
		s.Extremum = d
		return Press
	}
	return None
}
