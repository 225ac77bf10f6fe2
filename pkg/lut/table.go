// Package lut holds the table that maps a normalized hall-effect sensor reading onto key travel
// distance, together with the offline generator and the optional correction curve.
package lut

//go:generate go run ../../cmd/hekey lutgen -o table_gen.go

// Size is the number of entries of a distance table (12-bit sensor range).
const Size = 4096

// Table maps a normalized sensor index (0 = rest, Size-1 = bottom) onto travel distance in 0.01mm.
type Table [Size]uint16

// Lookup returns the distance for index i, clamping i into the table domain.
func (t *Table) Lookup(i int) uint16 {
	if i < 0 {
		i = 0
	} else if i >= Size {
		i = Size - 1
	}
	return t[i]
}

// Max returns the largest distance in the table.
func (t *Table) Max() uint16 {
	return t[Size-1]
}

// Monotonic reports whether the table is non-decreasing over its whole domain.
// It returns the first offending index otherwise.
func (t *Table) Monotonic() (bool, int) {
	for i := 1; i < Size; i++ {
		if t[i] < t[i-1] {
			return false, i
		}
	}
	return true, -1
}

// IndexOf returns the smallest index whose distance is at least d.
// Distances beyond the table maximum return Size-1.
// It is the inverse used by simulators to turn a travel distance back into a sensor value.
func (t *Table) IndexOf(d uint16) int {
	lo, hi := 0, Size-1
	for lo < hi {
		mid := (lo + hi) / 2
		if t[mid] < d {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Compose returns a table where every index is first remapped through index and then looked up in t.
// index must hold table indices, not distances.
func (t *Table) Compose(index *Table) *Table {
	var out Table
	for i := range out {
		out[i] = t.Lookup(int(index[i]))
	}
	return &out
}
