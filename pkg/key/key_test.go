package key

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, uint16(4095), s.MaxSample())
	assert.Equal(t, uint32(50), s.DebounceTicks())
	assert.Equal(t, uint16(400), s.MaxTravel)

	s.AnalogResolution = 10
	assert.Equal(t, uint16(1023), s.MaxSample())
	s.AnalogResolution = 0
	assert.Equal(t, uint16(0xffff), s.MaxSample())

	s.Debounce = 5 * time.Millisecond
	assert.Equal(t, uint32(5), s.DebounceTicks())
}

func TestDefaultHE(t *testing.T) {
	cfg := DefaultHE(2, MaxTravel)
	assert.Equal(t, uint8(2), cfg.Index)
	assert.Equal(t, Symbol('x'), cfg.Symbol)
	assert.False(t, cfg.OutputEnabled)
	assert.Equal(t, uint16(40), cfg.PressSensitivity)
	assert.Equal(t, uint16(40), cfg.ReleaseSensitivity)
	assert.Equal(t, uint16(220), cfg.LowerHysteresis)
	assert.Equal(t, uint16(270), cfg.UpperHysteresis)
	assert.Equal(t, uint16(DefaultRestPosition), cfg.RestPosition)
	assert.Equal(t, uint16(DefaultBottomPosition), cfg.BottomPosition)
}

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout(3, 2, MaxTravel)
	require.Len(t, l.HE, 3)
	require.Len(t, l.Digital, 2)

	assert.Equal(t, Symbol('z'), l.HE[0].Symbol)
	assert.Equal(t, Symbol('y'), l.HE[1].Symbol)
	assert.Equal(t, Symbol('a'), l.Digital[0].Symbol)
	assert.Equal(t, Symbol('b'), l.Digital[1].Symbol)
	assert.Equal(t, uint8(1), l.Digital[1].Index)

	// Defaults must already be valid.
	assert.Empty(t, l.Sanitize(DefaultSettings()))
}

func TestSanitize(t *testing.T) {
	s := DefaultSettings()
	def := DefaultHE(0, s.MaxTravel)

	tests := []struct {
		name   string
		modify func(cfg *HEConfig)
		field  string
		check  func(t *testing.T, cfg HEConfig)
	}{
		{
			name:   "hysteresis gap too small",
			modify: func(cfg *HEConfig) { cfg.LowerHysteresis, cfg.UpperHysteresis = 200, 205 },
			field:  "hysteresis",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.LowerHysteresis, cfg.LowerHysteresis)
				assert.Equal(t, def.UpperHysteresis, cfg.UpperHysteresis)
			},
		},
		{
			name:   "hysteresis inverted",
			modify: func(cfg *HEConfig) { cfg.LowerHysteresis, cfg.UpperHysteresis = 300, 100 },
			field:  "hysteresis",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.UpperHysteresis, cfg.UpperHysteresis)
			},
		},
		{
			name:   "upper hysteresis too close to full travel",
			modify: func(cfg *HEConfig) { cfg.UpperHysteresis = 395 },
			field:  "hysteresis",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.UpperHysteresis, cfg.UpperHysteresis)
			},
		},
		{
			name:   "upper hysteresis overflow",
			modify: func(cfg *HEConfig) { cfg.UpperHysteresis = 0xffff },
			field:  "hysteresis",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.UpperHysteresis, cfg.UpperHysteresis)
			},
		},
		{
			name:   "press sensitivity",
			modify: func(cfg *HEConfig) { cfg.PressSensitivity = 3 },
			field:  "press_sensitivity",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.PressSensitivity, cfg.PressSensitivity)
			},
		},
		{
			name:   "release sensitivity",
			modify: func(cfg *HEConfig) { cfg.ReleaseSensitivity = 0 },
			field:  "release_sensitivity",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.ReleaseSensitivity, cfg.ReleaseSensitivity)
			},
		},
		{
			name:   "calibration out of range",
			modify: func(cfg *HEConfig) { cfg.RestPosition = 5000 },
			field:  "calibration",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.RestPosition, cfg.RestPosition)
				assert.Equal(t, def.BottomPosition, cfg.BottomPosition)
			},
		},
		{
			name:   "calibration collapsed",
			modify: func(cfg *HEConfig) { cfg.RestPosition, cfg.BottomPosition = 1500, 1500 },
			field:  "calibration",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, def.RestPosition, cfg.RestPosition)
			},
		},
		{
			name:   "calibration swapped",
			modify: func(cfg *HEConfig) { cfg.RestPosition, cfg.BottomPosition = 1100, 1800 },
			field:  "calibration",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, uint16(DefaultRestPosition), cfg.RestPosition)
				assert.Equal(t, uint16(DefaultBottomPosition), cfg.BottomPosition)
			},
		},
		{
			name:   "index",
			modify: func(cfg *HEConfig) { cfg.Index = 9 },
			field:  "index",
			check: func(t *testing.T, cfg HEConfig) {
				assert.Equal(t, uint8(0), cfg.Index)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DefaultLayout(1, 0, s.MaxTravel)
			tt.modify(&l.HE[0])

			fixes := l.Sanitize(s)
			require.Len(t, fixes, 1)
			assert.Equal(t, "he", fixes[0].Kind)
			assert.Equal(t, tt.field, fixes[0].Field)
			tt.check(t, l.HE[0])

			assert.Empty(t, l.Sanitize(s), "sanitize must be idempotent")
		})
	}
}

func TestSanitizeKeepsValidCalibration(t *testing.T) {
	s := DefaultSettings()
	s.InvertSensor = true
	l := DefaultLayout(1, 1, s.MaxTravel)
	l.HE[0].RestPosition, l.HE[0].BottomPosition = 1200, 2900
	l.Digital[0].Index = 4

	fixes := l.Sanitize(s)
	require.Len(t, fixes, 1)
	assert.Equal(t, "digital", fixes[0].Kind)
	assert.Equal(t, "digital key 0: index 4 -> 0", fixes[0].String())
	assert.Equal(t, uint16(1200), l.HE[0].RestPosition)
}

func TestSanitizeCalibrationPolarity(t *testing.T) {
	s := DefaultSettings()
	s.InvertSensor = true
	l := DefaultLayout(2, 0, s.MaxTravel)

	fixes := l.Sanitize(s)
	require.Len(t, fixes, 2)
	for i, fix := range fixes {
		assert.Equal(t, i, fix.Index)
		assert.Equal(t, "calibration", fix.Field)
		assert.Equal(t, uint16(DefaultBottomPosition), l.HE[i].RestPosition)
		assert.Equal(t, uint16(DefaultRestPosition), l.HE[i].BottomPosition)
	}
	assert.Empty(t, l.Sanitize(s))
}

func TestSettingsCalibrationOrdered(t *testing.T) {
	tests := []struct {
		name         string
		inverted     bool
		rest, bottom uint16
		want         bool
	}{
		{"normal", false, 1800, 1100, true},
		{"normal swapped", false, 1100, 1800, false},
		{"normal collapsed", false, 1500, 1500, false},
		{"inverted", true, 1100, 1800, true},
		{"inverted swapped", true, 1800, 1100, false},
		{"inverted collapsed", true, 1500, 1500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.InvertSensor = tt.inverted
			assert.Equal(t, tt.want, s.CalibrationOrdered(tt.rest, tt.bottom))

			rest, bottom := s.DefaultCalibration()
			assert.True(t, s.CalibrationOrdered(rest, bottom))
		})
	}
}

func TestSymbolYAML(t *testing.T) {
	type wrapper struct {
		Symbol Symbol `yaml:"symbol"`
	}

	out, err := yaml.Marshal(wrapper{Symbol: 'q'})
	require.NoError(t, err)
	assert.Equal(t, "symbol: q\n", string(out))

	tests := []struct {
		name    string
		input   string
		want    Symbol
		wantErr bool
	}{
		{name: "character", input: "symbol: q", want: 'q'},
		{name: "quoted digit", input: `symbol: "5"`, want: '5'},
		{name: "code", input: "symbol: 32", want: ' '},
		{name: "too long", input: "symbol: abc", wantErr: true},
		{name: "empty", input: `symbol: ""`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w wrapper
			err := yaml.Unmarshal([]byte(tt.input), &w)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Symbol)
		})
	}
}

func TestLayoutYAMLRoundTrip(t *testing.T) {
	l := DefaultLayout(2, 1, MaxTravel)
	l.HE[1].RapidTrigger = true
	l.HE[1].OutputEnabled = true

	data, err := yaml.Marshal(&l)
	require.NoError(t, err)
	assert.Contains(t, string(data), "he_keys:")
	assert.Contains(t, string(data), "rapid_trigger: true")

	var got Layout
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, l, got)
}
