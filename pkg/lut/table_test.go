package lut

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_Monotonic(t *testing.T) {
	ok, at := DefaultTable.Monotonic()
	assert.True(t, ok, "table decreases at index %d", at)
	assert.Equal(t, uint16(0), DefaultTable[0])
	assert.Equal(t, uint16(400), DefaultTable.Max())
}

func TestTable_LookupClamps(t *testing.T) {
	assert.Equal(t, DefaultTable[0], DefaultTable.Lookup(-20))
	assert.Equal(t, DefaultTable[Size-1], DefaultTable.Lookup(Size))
	assert.Equal(t, DefaultTable[Size-1], DefaultTable.Lookup(1<<20))
	assert.Equal(t, DefaultTable[1234], DefaultTable.Lookup(1234))
}

func TestTable_IndexOf(t *testing.T) {
	tests := []struct {
		name     string
		distance uint16
	}{
		{"rest", 0},
		{"shallow", 25},
		{"actuation point", 270},
		{"deep", 399},
		{"bottom", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := DefaultTable.IndexOf(tt.distance)
			assert.GreaterOrEqual(t, DefaultTable[i], tt.distance)
			if i > 0 {
				assert.Less(t, DefaultTable[i-1], tt.distance)
			}
		})
	}

	assert.Equal(t, Size-1, DefaultTable.IndexOf(500))
}

func TestGenerate_MatchesBundledTable(t *testing.T) {
	generated := Generate(DefaultMagnet(), 400)

	for i := range generated {
		diff := int(generated[i]) - int(DefaultTable[i])
		require.LessOrEqual(t, diff, 1, "index %d", i)
		require.GreaterOrEqual(t, diff, -1, "index %d", i)
	}
}

func TestGenerate_Properties(t *testing.T) {
	tests := []struct {
		name      string
		magnet    Magnet
		maxTravel uint16
	}{
		{"default", DefaultMagnet(), 400},
		{"short travel", DefaultMagnet(), 350},
		{"small magnet", Magnet{Radius: 1, Thickness: 1, ResidualInduction: 1200, AirGap: 0.8}, 400},
		{"large gap", Magnet{Radius: 3, Thickness: 2, ResidualInduction: 1400, AirGap: 3}, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Generate(tt.magnet, tt.maxTravel)

			ok, at := table.Monotonic()
			assert.True(t, ok, "table decreases at index %d", at)
			assert.Equal(t, uint16(0), table[0])
			assert.Equal(t, tt.maxTravel, table.Max())
			for i := range table {
				require.LessOrEqual(t, table[i], tt.maxTravel)
			}
		})
	}
}

func TestMagnet_FieldDecreasesWithDistance(t *testing.T) {
	m := DefaultMagnet()
	prev := m.Field(0)
	for z := float32(0.25); z < 10; z += 0.25 {
		f := m.Field(z)
		assert.Less(t, f, prev, "z=%v", z)
		prev = f
	}
}

func TestCorrection_Validate(t *testing.T) {
	assert.NoError(t, DefaultCorrection().Validate())

	bad := DefaultCorrection()
	bad.B = 0
	assert.Error(t, bad.Validate())

	bad = DefaultCorrection()
	bad.C = -1
	assert.Error(t, bad.Validate())

	bad = DefaultCorrection()
	bad.D = bad.A
	assert.Error(t, bad.Validate())
}

func TestCorrection_TableIsMonotonicAndBounded(t *testing.T) {
	c := DefaultCorrection()
	table := c.Table()

	ok, at := table.Monotonic()
	assert.True(t, ok, "correction decreases at index %d", at)
	assert.Equal(t, uint16(0), table[0])
	assert.Equal(t, uint16(Size-1), table[Size-1])
	assert.Equal(t, 0, c.Apply(-5))
}

func TestCompose(t *testing.T) {
	var identity Table
	for i := range identity {
		identity[i] = uint16(i)
	}
	composed := DefaultTable.Compose(&identity)
	assert.Equal(t, DefaultTable, *composed)

	corrected := DefaultTable.Compose(DefaultCorrection().Table())
	ok, _ := corrected.Monotonic()
	assert.True(t, ok)
	// The default curve is concave, so mid travel reads deeper than the plain table.
	assert.GreaterOrEqual(t, corrected[Size/2], DefaultTable[Size/2])
}

func TestWriteSource(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSource(&buf, "lut", &DefaultTable, DefaultMagnet(), 400)
	require.NoError(t, err)

	src := buf.String()
	assert.True(t, strings.HasPrefix(src, "// Code generated by hekey lutgen; DO NOT EDIT."))
	assert.Contains(t, src, "package lut\n")
	assert.Contains(t, src, "radius=2mm thickness=2mm br=1280mT air_gap=1.5mm travel=400")
	assert.Equal(t, Size/valuesPerLine, strings.Count(src, ",\n"))
}
