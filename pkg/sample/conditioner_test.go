package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/lut"
)

func TestConditionerClamp(t *testing.T) {
	c := NewConditioner(&lut.DefaultTable, nil, key.DefaultSettings())
	assert.Equal(t, uint16(0), c.Clamp(0))
	assert.Equal(t, uint16(4095), c.Clamp(4095))
	assert.Equal(t, uint16(4095), c.Clamp(4096))
	assert.Equal(t, uint16(4095), c.Clamp(65535))
}

func TestConditionerIndex(t *testing.T) {
	normal := NewConditioner(&lut.DefaultTable, nil, key.DefaultSettings())
	s := key.DefaultSettings()
	s.InvertSensor = true
	inverted := NewConditioner(&lut.DefaultTable, nil, s)

	tests := []struct {
		name         string
		c            *Conditioner
		v            uint16
		rest, bottom uint16
		want         int
	}{
		{"at rest", normal, 1800, 1800, 1100, 0},
		{"above rest", normal, 1900, 1800, 1100, 0},
		{"at bottom", normal, 1100, 1800, 1100, lut.Size - 1},
		{"below bottom", normal, 900, 1800, 1100, lut.Size - 1},
		{"half", normal, 1450, 1800, 1100, (lut.Size - 1) / 2},
		{"degenerate", normal, 1000, 1500, 1500, 0},
		{"wrong polarity", normal, 1500, 1100, 1800, 0},
		{"inverted rest", inverted, 1100, 1100, 1800, 0},
		{"inverted bottom", inverted, 1800, 1100, 1800, lut.Size - 1},
		{"inverted half", inverted, 1450, 1100, 1800, (lut.Size - 1) / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Index(tt.v, tt.rest, tt.bottom))
		})
	}
}

func TestConditionerDistance(t *testing.T) {
	c := NewConditioner(&lut.DefaultTable, nil, key.DefaultSettings())

	assert.Equal(t, uint16(0), c.Distance(1800, 1800, 1100))
	assert.Equal(t, uint16(key.MaxTravel), c.Distance(1100, 1800, 1100))
	assert.Equal(t, lut.DefaultTable[2047], c.Distance(1450, 1800, 1100))
	assert.Equal(t, uint16(0), c.Distance(65535, 1800, 1100))

	prev := uint16(0)
	for v := uint16(1800); v >= 1100; v-- {
		d := c.Distance(v, 1800, 1100)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestConditionerLimitsTravel(t *testing.T) {
	s := key.DefaultSettings()
	s.MaxTravel = 300
	c := NewConditioner(&lut.DefaultTable, nil, s)
	assert.Equal(t, uint16(300), c.Distance(1100, 1800, 1100))
}

func TestConditionerCorrection(t *testing.T) {
	corr := lut.DefaultCorrection()
	corr.Enabled = true
	corr.B = 2

	plain := NewConditioner(&lut.DefaultTable, nil, key.DefaultSettings())
	corrected := NewConditioner(&lut.DefaultTable, corr.Table(), key.DefaultSettings())

	assert.Equal(t, plain.Distance(1800, 1800, 1100), corrected.Distance(1800, 1800, 1100))
	assert.Equal(t, plain.Distance(1100, 1800, 1100), corrected.Distance(1100, 1800, 1100))
	assert.NotEqual(t, plain.Distance(1450, 1800, 1100), corrected.Distance(1450, 1800, 1100))
}
