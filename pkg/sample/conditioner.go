package sample

import (
	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/lut"
)

// Conditioner turns filtered sensor samples into travel distance.
// It is shared by all hall-effect keys; per-key state lives in Filter and in the key record.
type Conditioner struct {
	table     *lut.Table
	maxSample uint16
	maxTravel uint16
	inverted  bool
}

// NewConditioner creates a conditioner for table. When correction is not nil the correction
// table is folded into the distance table once, so every lookup stays a single index.
func NewConditioner(table *lut.Table, correction *lut.Table, s key.Settings) *Conditioner {
	if correction != nil {
		table = table.Compose(correction)
	}
	return &Conditioner{
		table:     table,
		maxSample: s.MaxSample(),
		maxTravel: s.MaxTravel,
		inverted:  s.InvertSensor,
	}
}

// Clamp limits a raw sample to the sensor range.
func (c *Conditioner) Clamp(raw uint16) uint16 {
	if raw > c.maxSample {
		return c.maxSample
	}
	return raw
}

// Index normalizes v against the reference range onto a table index.
// rest and bottom are raw values; their order depends on the sensor polarity.
func (c *Conditioner) Index(v, rest, bottom uint16) int {
	travel, span := int32(rest)-int32(v), int32(rest)-int32(bottom)
	if c.inverted {
		travel, span = -travel, -span
	}
	if span <= 0 || travel <= 0 {
		return 0
	}
	if travel >= span {
		return lut.Size - 1
	}
	return int(travel * (lut.Size - 1) / span)
}

// Distance maps a filtered sample onto travel distance in 0.01mm, clamped to [0, MaxTravel].
func (c *Conditioner) Distance(v, rest, bottom uint16) uint16 {
	d := c.table.Lookup(c.Index(c.Clamp(v), rest, bottom))
	if d > c.maxTravel {
		return c.maxTravel
	}
	return d
}
