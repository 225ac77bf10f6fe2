package lut

import (
	"errors"

	"github.com/chewxy/math32"
)

// Correction is a four parameter logistic curve fitted against measured key travel:
//
//	y = D + (A - D) / (1 + (x/C)^B)
//
// It remaps a table index before the distance lookup to compensate for sensor non-linearity.
type Correction struct {
	Enabled bool    `yaml:"enabled"`
	A       float32 `yaml:"a"`
	B       float32 `yaml:"b"`
	C       float32 `yaml:"c"`
	D       float32 `yaml:"d"`
}

// DefaultCorrection returns a mild, disabled curve that maps 0 to 0 and Size-1 to Size-1.
func DefaultCorrection() Correction {
	return Correction{
		Enabled: false,
		A:       0,
		B:       1,
		C:       Size - 1,
		D:       2 * (Size - 1),
	}
}

// Validate checks that the curve is monotonically increasing over the table domain.
func (c Correction) Validate() error {
	if c.B <= 0 {
		return errors.New("correction parameter b must be positive")
	}
	if c.C <= 0 {
		return errors.New("correction parameter c must be positive")
	}
	if c.D <= c.A {
		return errors.New("correction parameter d must be greater than a")
	}
	return nil
}

// Apply maps index x through the curve, clamped to the table domain.
func (c Correction) Apply(x int) int {
	if x <= 0 {
		x = 0
	}
	y := c.D + (c.A-c.D)/(1+math32.Pow(float32(x)/c.C, c.B))
	switch {
	case y <= 0:
		return 0
	case y >= Size-1:
		return Size - 1
	}
	return int(math32.Round(y))
}

// Table precomputes the curve for every index so the scan path stays O(1).
func (c Correction) Table() *Table {
	var t Table
	for i := range t {
		t[i] = uint16(c.Apply(i))
	}
	return &t
}
