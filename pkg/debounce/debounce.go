// Package debounce commits digital key levels once they have been stable for an interval.
package debounce

// Debouncer is the state of one digital key. Times are ticks of a free running uint32 counter
// (milliseconds on the firmware) and may wrap around.
type Debouncer struct {
	Interval uint32

	raw        bool
	committed  bool
	lastChange uint32
}

// New creates a debouncer requiring interval ticks of stability.
func New(interval uint32) Debouncer {
	return Debouncer{Interval: interval}
}

// Update records the level read at tick now and reports whether the committed level changed.
// A level that flips back before the interval has elapsed never gets committed.
func (d *Debouncer) Update(level bool, now uint32) bool {
	next := *d
	if level != next.raw {
		next.raw = level
		next.lastChange = now
	}

	changed := false
	// Unsigned subtraction yields the elapsed ticks across a counter wrap.
	if next.raw != next.committed && now-next.lastChange >= next.Interval {
		next.committed = next.raw
		changed = true
	}

	*d = next
	return changed
}

// Pressed returns the committed level.
func (d *Debouncer) Pressed() bool {
	return d.committed
}

// Raw returns the last level read.
func (d *Debouncer) Raw() bool {
	return d.raw
}

// Reset returns the debouncer to released.
func (d *Debouncer) Reset() {
	*d = Debouncer{Interval: d.Interval}
}
