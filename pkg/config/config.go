package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/lut"
	"github.com/itohio/hekeypad/pkg/sample"
)

const (
	// MaxHEKeys is the number of analog inputs the board exposes.
	MaxHEKeys = 4
	// MaxDigitalKeys keeps the default symbols within 'a'..'z'.
	MaxDigitalKeys = 26
)

// Config represents the application configuration.
type Config struct {
	Serial     SerialConfig   `yaml:"serial"`
	Keypad     KeypadConfig   `yaml:"keypad"`
	Engine     key.Settings   `yaml:"engine"`
	Magnet     lut.Magnet     `yaml:"magnet"`
	Correction lut.Correction `yaml:"correction"`
	Monitor    MonitorConfig  `yaml:"monitor"`
	Mock       MockConfig     `yaml:"mock"`
	Logging    LoggingConfig  `yaml:"logging"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// KeypadConfig names the keypad and holds its key records.
type KeypadConfig struct {
	Name       string `yaml:"name"`
	key.Layout `yaml:",inline"`
}

// MonitorConfig contains host side monitoring parameters.
type MonitorConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"`
	MaxEvents     int     `yaml:"max_events"`
	ScopePoints   int     `yaml:"scope_points"` // Points drawn per trace after downsampling
}

// MockConfig contains simulated keypad configuration.
type MockConfig struct {
	RestValue   uint16        `yaml:"rest_value"`   // Raw reading of a released key
	BottomValue uint16        `yaml:"bottom_value"` // Raw reading of a bottomed out key
	NoiseLevel  uint16        `yaml:"noise_level"`  // Peak raw noise
	Bounce      time.Duration `yaml:"bounce"`       // Contact bounce of digital keys
	SampleRate  time.Duration `yaml:"sample_rate"`  // Time between frames
	StrokeTime  time.Duration `yaml:"stroke_time"`  // Duration of a full press or release
	StrokeGap   time.Duration `yaml:"stroke_gap"`   // Idle time between strokes
}

// LoggingConfig selects the log level: error, warn, info or debug.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	engine := key.DefaultSettings()
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0", // "COM3" on Windows
			BaudRate: 115200,
		},
		Keypad: KeypadConfig{
			Name:   "hekeypad",
			Layout: key.DefaultLayout(3, 2, engine.MaxTravel),
		},
		Engine:     engine,
		Magnet:     lut.DefaultMagnet(),
		Correction: lut.DefaultCorrection(),
		Monitor: MonitorConfig{
			WindowSeconds: 10,
			MaxEvents:     256,
			ScopePoints:   1000,
		},
		Mock: MockConfig{
			RestValue:   1850,
			BottomValue: 1120,
			NoiseLevel:  4,
			Bounce:      5 * time.Millisecond,
			SampleRate:  time.Millisecond,
			StrokeTime:  80 * time.Millisecond,
			StrokeGap:   300 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects configurations that cannot be repaired field by field.
func (c *Config) Validate() error {
	if n := len(c.Keypad.HE); n > MaxHEKeys {
		return fmt.Errorf("%d hall-effect keys configured, at most %d supported", n, MaxHEKeys)
	}
	if n := len(c.Keypad.Digital); n > MaxDigitalKeys {
		return fmt.Errorf("%d digital keys configured, at most %d supported", n, MaxDigitalKeys)
	}
	if c.Engine.AnalogResolution > 16 {
		return fmt.Errorf("analog resolution of %d bits is not supported", c.Engine.AnalogResolution)
	}
	return nil
}

// Sanitize replaces invalid engine and key values with defaults and returns what was changed.
func (c *Config) Sanitize() []key.Correction {
	var fixes []key.Correction
	def := key.DefaultSettings()

	if c.Engine.FilterExponent > sample.MaxFilterExponent {
		fixes = append(fixes, engineFix("filter_exponent", c.Engine.FilterExponent, def.FilterExponent))
		c.Engine.FilterExponent = def.FilterExponent
	}
	if c.Engine.ContinuousThreshold >= c.Engine.MaxTravel {
		fixes = append(fixes, engineFix("continuous_threshold", c.Engine.ContinuousThreshold, def.ContinuousThreshold))
		c.Engine.ContinuousThreshold = def.ContinuousThreshold
	}

	if c.Correction.Enabled {
		if err := c.Correction.Validate(); err != nil {
			fixes = append(fixes, key.Correction{
				Kind:  "engine",
				Field: "correction",
				Was:   err.Error(),
				Now:   "disabled",
			})
			c.Correction = lut.DefaultCorrection()
		}
	}

	return append(fixes, c.Keypad.Sanitize(c.Engine)...)
}

// CorrectionTable returns the index correction table, or nil when correction is disabled.
func (c *Config) CorrectionTable() *lut.Table {
	if !c.Correction.Enabled {
		return nil
	}
	return c.Correction.Table()
}

func engineFix(field string, was, now any) key.Correction {
	return key.Correction{
		Kind:  "engine",
		Field: field,
		Was:   fmt.Sprint(was),
		Now:   fmt.Sprint(now),
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Keypad.Name == "" {
		c.Keypad.Name = def.Keypad.Name
	}
	if len(c.Keypad.HE) == 0 && len(c.Keypad.Digital) == 0 {
		c.Keypad.Layout = def.Keypad.Layout
	}

	if c.Engine.MaxTravel == 0 {
		c.Engine.MaxTravel = def.Engine.MaxTravel
	}
	if c.Engine.AnalogResolution == 0 {
		c.Engine.AnalogResolution = def.Engine.AnalogResolution
	}

	if c.Magnet.Radius == 0 {
		c.Magnet.Radius = def.Magnet.Radius
	}
	if c.Magnet.Thickness == 0 {
		c.Magnet.Thickness = def.Magnet.Thickness
	}
	if c.Magnet.ResidualInduction == 0 {
		c.Magnet.ResidualInduction = def.Magnet.ResidualInduction
	}

	if c.Monitor.WindowSeconds == 0 {
		c.Monitor.WindowSeconds = def.Monitor.WindowSeconds
	}
	if c.Monitor.MaxEvents == 0 {
		c.Monitor.MaxEvents = def.Monitor.MaxEvents
	}
	if c.Monitor.ScopePoints == 0 {
		c.Monitor.ScopePoints = def.Monitor.ScopePoints
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.StrokeTime == 0 {
		c.Mock.StrokeTime = def.Mock.StrokeTime
	}
	if c.Mock.RestValue == 0 && c.Mock.BottomValue == 0 {
		c.Mock.RestValue = def.Mock.RestValue
		c.Mock.BottomValue = def.Mock.BottomValue
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}
