package sample

// MaxFilterExponent keeps the accumulator of a 16-bit sample inside 32 bits.
const MaxFilterExponent = 15

// Filter is an exponential moving average with a weight of 1/2^exponent.
// Each key owns one Filter. The zero value is a pass-through filter.
type Filter struct {
	exponent uint8
	acc      uint32 // filtered value << exponent
	seeded   bool
}

// NewFilter creates a filter smoothing over roughly 2^exponent samples.
func NewFilter(exponent uint8) Filter {
	if exponent > MaxFilterExponent {
		exponent = MaxFilterExponent
	}
	return Filter{exponent: exponent}
}

// Apply feeds v into the filter and returns the smoothed value.
// The first sample seeds the accumulator so a cold filter does not ramp up from zero.
func (f *Filter) Apply(v uint16) uint16 {
	if !f.seeded {
		f.acc = uint32(v) << f.exponent
		f.seeded = true
		return v
	}
	f.acc = f.acc - f.acc>>f.exponent + uint32(v)
	return uint16(f.acc >> f.exponent)
}

// Value returns the current filter output without feeding a sample.
func (f *Filter) Value() uint16 {
	return uint16(f.acc >> f.exponent)
}

// Reset makes the next sample seed the filter again.
func (f *Filter) Reset() {
	f.acc = 0
	f.seeded = false
}
