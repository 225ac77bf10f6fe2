package key

import "time"

const (
	// HysteresisTolerance is the minimum gap between the lower and upper hysteresis, and between
	// the upper hysteresis and the full travel distance.
	HysteresisTolerance = 10
	// RapidTriggerTolerance is the minimum value for both rapid trigger sensitivities.
	RapidTriggerTolerance = 10
	// ContinuousRapidTriggerThreshold is the distance at or below which a key counts as fully released.
	ContinuousRapidTriggerThreshold = 10
	// CalibrationDeadzone is moved from the rest extreme toward the pressed extreme before mapping.
	CalibrationDeadzone = 7
	// AnalogResolution is the ADC resolution in bits.
	AnalogResolution = 12
	// FilterExponent selects 2^n samples of smoothing.
	FilterExponent = 4
	// MaxTravel is the switch travel distance in 0.01mm.
	MaxTravel = 400
	// DebounceDelay is the minimum time a digital level must be stable before it is committed.
	DebounceDelay = 50 * time.Millisecond

	// DefaultRestPosition and DefaultBottomPosition approximate a 49E sensor at 12 bits.
	DefaultRestPosition   = 1800
	DefaultBottomPosition = 1100
)

// Identity is shared by every key record.
type Identity struct {
	Index         uint8  `yaml:"index"`
	Symbol        Symbol `yaml:"symbol"`
	OutputEnabled bool   `yaml:"output_enabled"`
}

// HEConfig is the configuration record of a hall-effect key.
type HEConfig struct {
	Identity `yaml:",inline"`

	RapidTrigger           bool `yaml:"rapid_trigger"`
	ContinuousRapidTrigger bool `yaml:"continuous_rapid_trigger"`

	// Sensitivities are in 0.01mm.
	PressSensitivity   uint16 `yaml:"press_sensitivity"`
	ReleaseSensitivity uint16 `yaml:"release_sensitivity"`

	// Hysteresis thresholds are in 0.01mm.
	LowerHysteresis uint16 `yaml:"lower_hysteresis"`
	UpperHysteresis uint16 `yaml:"upper_hysteresis"`

	// Calibration bounds are raw sensor values.
	RestPosition   uint16 `yaml:"rest_position"`
	BottomPosition uint16 `yaml:"bottom_position"`
}

// DigitalConfig is the configuration record of a digital key.
type DigitalConfig struct {
	Identity `yaml:",inline"`
}

// Settings holds the engine-wide constants that apply to every key.
type Settings struct {
	HysteresisTolerance   uint16        `yaml:"hysteresis_tolerance"`
	RapidTriggerTolerance uint16        `yaml:"rapid_trigger_tolerance"`
	ContinuousThreshold   uint16        `yaml:"continuous_threshold"`
	CalibrationDeadzone   uint16        `yaml:"calibration_deadzone"`
	AnalogResolution      uint8         `yaml:"analog_resolution"`
	FilterExponent        uint8         `yaml:"filter_exponent"`
	MaxTravel             uint16        `yaml:"max_travel"`
	InvertSensor          bool          `yaml:"invert_sensor"`
	Debounce              time.Duration `yaml:"debounce"`
}

// DefaultSettings returns the firmware defaults.
func DefaultSettings() Settings {
	return Settings{
		HysteresisTolerance:   HysteresisTolerance,
		RapidTriggerTolerance: RapidTriggerTolerance,
		ContinuousThreshold:   ContinuousRapidTriggerThreshold,
		CalibrationDeadzone:   CalibrationDeadzone,
		AnalogResolution:      AnalogResolution,
		FilterExponent:        FilterExponent,
		MaxTravel:             MaxTravel,
		InvertSensor:          false,
		Debounce:              DebounceDelay,
	}
}

// MaxSample returns the largest raw value the ADC can produce.
func (s Settings) MaxSample() uint16 {
	if s.AnalogResolution == 0 || s.AnalogResolution > 16 {
		return 1<<16 - 1
	}
	return uint16(1<<s.AnalogResolution - 1)
}

// DefaultCalibration returns the default rest and bottom raw values for the sensor polarity.
func (s Settings) DefaultCalibration() (rest, bottom uint16) {
	if s.InvertSensor {
		return DefaultBottomPosition, DefaultRestPosition
	}
	return DefaultRestPosition, DefaultBottomPosition
}

// CalibrationOrdered reports whether rest lies on the unpressed side of bottom.
func (s Settings) CalibrationOrdered(rest, bottom uint16) bool {
	if s.InvertSensor {
		return rest < bottom
	}
	return rest > bottom
}

// DebounceTicks returns the debounce interval in millisecond ticks.
func (s Settings) DebounceTicks() uint32 {
	return uint32(s.Debounce / time.Millisecond)
}

// DefaultHE returns the default record for the hall-effect key at index i.
// Symbols are assigned from 'z' downwards.
func DefaultHE(i uint8, maxTravel uint16) HEConfig {
	return HEConfig{
		Identity: Identity{
			Index:  i,
			Symbol: Symbol('z' - i),
		},
		PressSensitivity:   maxTravel / 10,
		ReleaseSensitivity: maxTravel / 10,
		LowerHysteresis:    uint16(uint32(maxTravel) * 55 / 100),
		UpperHysteresis:    uint16(uint32(maxTravel) * 675 / 1000),
		RestPosition:       DefaultRestPosition,
		BottomPosition:     DefaultBottomPosition,
	}
}

// DefaultDigital returns the default record for the digital key at index i.
// Symbols are assigned from 'a' upwards.
func DefaultDigital(i uint8) DigitalConfig {
	return DigitalConfig{
		Identity: Identity{
			Index:  i,
			Symbol: Symbol('a' + i),
		},
	}
}
