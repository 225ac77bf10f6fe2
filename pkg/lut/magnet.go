package lut

import "github.com/chewxy/math32"

// Magnet describes the switch magnet and its position relative to the sensor.
// Lengths are in millimeters, the residual induction in millitesla.
type Magnet struct {
	Radius            float32 `yaml:"radius_mm"`
	Thickness         float32 `yaml:"thickness_mm"`
	ResidualInduction float32 `yaml:"residual_induction_mt"`
	AirGap            float32 `yaml:"air_gap_mm"` // sensor to magnet face with the key fully pressed
}

// DefaultMagnet is the magnet the bundled table was generated for.
func DefaultMagnet() Magnet {
	return Magnet{
		Radius:            2.0,
		Thickness:         2.0,
		ResidualInduction: 1280,
		AirGap:            1.5,
	}
}

// Field returns the on-axis flux density of a cylindrical magnet at distance z from its face.
func (m Magnet) Field(z float32) float32 {
	r2 := m.Radius * m.Radius
	far := z + m.Thickness
	return m.ResidualInduction / 2 * (far/math32.Sqrt(r2+far*far) - z/math32.Sqrt(r2+z*z))
}

// gapFor returns the magnet distance in [near, far] at which the field equals b.
// The field strictly decreases with distance, so bisection converges.
func (m Magnet) gapFor(b, near, far float32) float32 {
	lo, hi := near, far
	for range 32 {
		mid := (lo + hi) / 2
		if m.Field(mid) > b {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// Generate computes a distance table for the magnet and a travel of maxTravel (0.01mm).
// Index 0 is the field seen at rest, Size-1 the field at full press; indices in between are
// linear in flux density, which is what a linear hall sensor reports.
func Generate(m Magnet, maxTravel uint16) *Table {
	var t Table

	restGap := m.AirGap + float32(maxTravel)/100
	bRest := m.Field(restGap)
	bBottom := m.Field(m.AirGap)

	var prev uint16
	for i := range t {
		b := bRest + (bBottom-bRest)*float32(i)/float32(Size-1)
		gap := m.gapFor(b, m.AirGap, restGap)

		d := math32.Round((restGap - gap) * 100)
		v := uint16(0)
		if d >= float32(maxTravel) {
			v = maxTravel
		} else if d > 0 {
			v = uint16(d)
		}
		if v < prev {
			v = prev
		}
		t[i] = v
		prev = v
	}

	return &t
}
