package key

import "fmt"

// Layout is the configuration table of a keypad. Records are addressed by their position,
// which always equals their Identity.Index.
type Layout struct {
	HE      []HEConfig      `yaml:"he_keys"`
	Digital []DigitalConfig `yaml:"digital_keys"`
}

// Correction describes a configuration field that was replaced by a safe value.
type Correction struct {
	Kind  string
	Index int
	Field string
	Was   string
	Now   string
}

func (c Correction) String() string {
	return fmt.Sprintf("%s key %d: %s %s -> %s", c.Kind, c.Index, c.Field, c.Was, c.Now)
}

// DefaultLayout returns a layout with heKeys hall-effect and digitalKeys digital keys.
func DefaultLayout(heKeys, digitalKeys int, maxTravel uint16) Layout {
	l := Layout{
		HE:      make([]HEConfig, heKeys),
		Digital: make([]DigitalConfig, digitalKeys),
	}
	for i := range l.HE {
		l.HE[i] = DefaultHE(uint8(i), maxTravel)
	}
	for i := range l.Digital {
		l.Digital[i] = DefaultDigital(uint8(i))
	}
	return l
}

// Sanitize replaces values that violate the engine invariants with defaults and returns the
// list of corrections. The engine never re-validates records after this step.
func (l *Layout) Sanitize(s Settings) []Correction {
	var fixes []Correction

	for i := range l.HE {
		cfg := &l.HE[i]
		def := DefaultHE(uint8(i), s.MaxTravel)
		def.RestPosition, def.BottomPosition = s.DefaultCalibration()

		if cfg.Index != uint8(i) {
			fixes = append(fixes, heFix(i, "index", cfg.Index, uint8(i)))
			cfg.Index = uint8(i)
		}

		lower, upper, tol := uint32(cfg.LowerHysteresis), uint32(cfg.UpperHysteresis), uint32(s.HysteresisTolerance)
		if upper < lower+tol || upper+tol > uint32(s.MaxTravel) {
			fixes = append(fixes,
				heFix(i, "hysteresis", hysteresisPair(cfg.LowerHysteresis, cfg.UpperHysteresis),
					hysteresisPair(def.LowerHysteresis, def.UpperHysteresis)))
			cfg.LowerHysteresis = def.LowerHysteresis
			cfg.UpperHysteresis = def.UpperHysteresis
		}

		if cfg.PressSensitivity < s.RapidTriggerTolerance {
			fixes = append(fixes, heFix(i, "press_sensitivity", cfg.PressSensitivity, def.PressSensitivity))
			cfg.PressSensitivity = def.PressSensitivity
		}
		if cfg.ReleaseSensitivity < s.RapidTriggerTolerance {
			fixes = append(fixes, heFix(i, "release_sensitivity", cfg.ReleaseSensitivity, def.ReleaseSensitivity))
			cfg.ReleaseSensitivity = def.ReleaseSensitivity
		}

		if cfg.RestPosition > s.MaxSample() || cfg.BottomPosition > s.MaxSample() ||
			!s.CalibrationOrdered(cfg.RestPosition, cfg.BottomPosition) {
			fixes = append(fixes,
				heFix(i, "calibration", calibrationPair(cfg.RestPosition, cfg.BottomPosition),
					calibrationPair(def.RestPosition, def.BottomPosition)))
			cfg.RestPosition = def.RestPosition
			cfg.BottomPosition = def.BottomPosition
		}
	}

	for i := range l.Digital {
		if l.Digital[i].Index != uint8(i) {
			fixes = append(fixes, Correction{
				Kind:  "digital",
				Index: i,
				Field: "index",
				Was:   fmt.Sprint(l.Digital[i].Index),
				Now:   fmt.Sprint(i),
			})
			l.Digital[i].Index = uint8(i)
		}
	}

	return fixes
}

func heFix(i int, field string, was, now any) Correction {
	return Correction{
		Kind:  "he",
		Index: i,
		Field: field,
		Was:   fmt.Sprint(was),
		Now:   fmt.Sprint(now),
	}
}

func hysteresisPair(lower, upper uint16) string {
	return fmt.Sprintf("%d..%d", lower, upper)
}

func calibrationPair(rest, bottom uint16) string {
	return fmt.Sprintf("rest=%d bottom=%d", rest, bottom)
}
