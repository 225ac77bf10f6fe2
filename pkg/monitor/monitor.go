// Package monitor replays the scan loop on the host over raw frames streamed by a keypad and keeps
// a sliding window of per-key traces and events for display.
package monitor

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/itohio/hekeypad/pkg/config"
	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/keypad"
	"github.com/itohio/hekeypad/pkg/lut"
	"github.com/itohio/hekeypad/pkg/protocol"
	"github.com/itohio/hekeypad/pkg/sample"
)

var _ KeyMonitor = (*Monitor)(nil)

// Point is the state of one key after a frame.
type Point struct {
	Time     time.Duration
	Raw      uint16 // raw reading; 0 or 1 for digital keys
	Filtered uint16
	Distance uint16 // 0.01mm, hall-effect keys only
	Pressed  bool
}

// Source tells where an event was decided.
type Source uint8

const (
	Host Source = iota
	Device
)

func (s Source) String() string {
	if s == Device {
		return "device"
	}
	return "host"
}

// Record is an event in the monitor history.
type Record struct {
	protocol.Event
	Source Source
}

// Stats counts the transitions of one key.
type Stats struct {
	Presses  int
	Releases int
}

// Snapshot is a copy of the monitor state handed to update callbacks.
type Snapshot struct {
	HE      [][]Point
	Digital [][]Point
	Events  []Record
	Layout  key.Layout
}

// KeyMonitor consumes frames and events and keeps windowed traces.
type KeyMonitor interface {
	ProcessFrames(input <-chan protocol.Frame)
	ProcessEvents(input <-chan protocol.Event)
	Snapshot() Snapshot
	OnUpdate(func(Snapshot))
}

// Monitor implements KeyMonitor with its own keypad instance. Every key emits events on the host
// regardless of its output flag, so the monitor observes all transitions.
type Monitor struct {
	log    *slog.Logger
	layout key.Layout
	keypad *keypad.Keypad

	mu        sync.RWMutex
	he        [][]Point
	digital   [][]Point
	events    []Record
	stats     map[keypad.Kind][]Stats
	mismatch  bool
	shutdown  bool
	window    time.Duration
	maxEvents int

	callbacks  []func(Snapshot)
	throttle   time.Duration
	lastNotify time.Time
	cbMu       sync.Mutex
}

// New creates a monitor for the keypad described by cfg.
func New(cfg *config.Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		log:       logger.With("component", "monitor"),
		layout:    observeAll(cfg.Keypad.Layout),
		window:    time.Duration(cfg.Monitor.WindowSeconds * float64(time.Second)),
		maxEvents: cfg.Monitor.MaxEvents,
	}
	m.keypad = keypad.New(&m.layout, cfg.Engine,
		sample.NewConditioner(&lut.DefaultTable, cfg.CorrectionTable(), cfg.Engine))

	m.he = make([][]Point, len(m.layout.HE))
	m.digital = make([][]Point, len(m.layout.Digital))
	m.stats = map[keypad.Kind][]Stats{
		keypad.HallEffect: make([]Stats, len(m.layout.HE)),
		keypad.Digital:    make([]Stats, len(m.layout.Digital)),
	}
	return m
}

func observeAll(l key.Layout) key.Layout {
	out := key.Layout{
		HE:      append([]key.HEConfig(nil), l.HE...),
		Digital: append([]key.DigitalConfig(nil), l.Digital...),
	}
	for i := range out.HE {
		out.HE[i].OutputEnabled = true
	}
	for i := range out.Digital {
		out.Digital[i].OutputEnabled = true
	}
	return out
}

// ProcessFrames scans every frame from input until it is closed.
func (m *Monitor) ProcessFrames(input <-chan protocol.Frame) {
	for f := range input {
		m.processFrame(f)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

// ProcessEvents records events reported by the device until input is closed.
func (m *Monitor) ProcessEvents(input <-chan protocol.Event) {
	for e := range input {
		m.mu.Lock()
		m.appendEvent(Record{Event: e, Source: Device})
		notify := !m.shutdown
		m.mu.Unlock()

		m.log.Debug("device event", "event", e.Event, "time", e.Time)
		if notify {
			m.notifyCallbacks()
		}
	}
}

func (m *Monitor) processFrame(f protocol.Frame) {
	m.mu.Lock()

	// A missing key would read as raw 0 and look fully pressed to the calibration tracker.
	if len(f.HE) != len(m.he) || len(f.Digital) != len(m.digital) {
		if !m.mismatch {
			m.mismatch = true
			m.log.Warn("dropping frames that do not match the configured layout",
				"he", len(f.HE), "digital", len(f.Digital),
				"configured_he", len(m.he), "configured_digital", len(m.digital))
		}
		m.mu.Unlock()
		return
	}

	m.keypad.Scan(f.Tick, f, func(e keypad.Event) {
		m.appendEvent(Record{Event: protocol.Event{Time: f.Time, Event: e}, Source: Host})
		m.count(e)
		m.log.Info("key event", "event", e, "time", f.Time)
	})

	for i := range m.he {
		k := m.keypad.HE(i)
		m.he[i] = append(m.he[i], Point{
			Time:     f.Time,
			Raw:      f.ReadHE(i),
			Filtered: k.Filtered(),
			Distance: k.Distance(),
			Pressed:  k.Pressed(),
		})
		m.he[i] = m.trim(m.he[i], f.Time)
	}
	for i := range m.digital {
		var raw uint16
		if f.ReadDigital(i) {
			raw = 1
		}
		m.digital[i] = append(m.digital[i], Point{
			Time:     f.Time,
			Raw:      raw,
			Filtered: raw,
			Pressed:  m.keypad.Digital(i).Pressed(),
		})
		m.digital[i] = m.trim(m.digital[i], f.Time)
	}

	notify := !m.shutdown
	m.mu.Unlock()

	if notify {
		m.notifyCallbacks()
	}
}

// trim drops points that fell out of the window ending at now.
func (m *Monitor) trim(trace []Point, now time.Duration) []Point {
	cutoff := now - m.window
	i := sort.Search(len(trace), func(i int) bool { return trace[i].Time >= cutoff })
	return trace[i:]
}

func (m *Monitor) appendEvent(r Record) {
	m.events = append(m.events, r)
	if over := len(m.events) - m.maxEvents; m.maxEvents > 0 && over > 0 {
		m.events = append(m.events[:0], m.events[over:]...)
	}
}

func (m *Monitor) count(e keypad.Event) {
	stats := m.stats[e.Kind]
	if int(e.Index) >= len(stats) {
		return
	}
	if e.Edge == keypad.Press {
		stats[e.Index].Presses++
	} else {
		stats[e.Index].Releases++
	}
}

// Stats returns the transition counts of the key of kind at index i, decided on the host.
func (m *Monitor) Stats(kind keypad.Kind, i int) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats[kind][i]
}

// Calibration returns a copy of the calibrated layout and whether it changed since the last
// MarkCalibrationSaved.
func (m *Monitor) Calibration() (key.Layout, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyLayout(), m.keypad.CalibrationDirty()
}

// MarkCalibrationSaved clears the calibration dirty flag.
func (m *Monitor) MarkCalibrationSaved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keypad.MarkCalibrationSaved()
}

// ResetCalibration restores default calibration on the host side keypad.
func (m *Monitor) ResetCalibration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keypad.ResetCalibration()
}

func (m *Monitor) copyLayout() key.Layout {
	return key.Layout{
		HE:      append([]key.HEConfig(nil), m.layout.HE...),
		Digital: append([]key.DigitalConfig(nil), m.layout.Digital...),
	}
}

// Snapshot returns a copy of the current traces and events.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		HE:      make([][]Point, len(m.he)),
		Digital: make([][]Point, len(m.digital)),
		Events:  append([]Record(nil), m.events...),
		Layout:  m.copyLayout(),
	}
	for i, trace := range m.he {
		s.HE[i] = append([]Point(nil), trace...)
	}
	for i, trace := range m.digital {
		s.Digital[i] = append([]Point(nil), trace...)
	}
	return s
}

// OnUpdate registers a callback invoked after every frame or device event.
// The callback should return quickly.
func (m *Monitor) OnUpdate(callback func(Snapshot)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// SetThrottle limits callbacks to one per interval. Updates arriving sooner are skipped
// without building a snapshot; 0 notifies on every update.
func (m *Monitor) SetThrottle(interval time.Duration) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.throttle = interval
}

// ResetShutdown allows callbacks again after the frame channel was closed.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

func (m *Monitor) notifyCallbacks() {
	m.cbMu.Lock()
	now := time.Now()
	if m.throttle > 0 && now.Sub(m.lastNotify) < m.throttle {
		m.cbMu.Unlock()
		return
	}
	m.lastNotify = now
	callbacks := append([]func(Snapshot){}, m.callbacks...)
	m.cbMu.Unlock()

	if len(callbacks) == 0 {
		return
	}

	s := m.Snapshot()
	for _, cb := range callbacks {
		if cb != nil {
			cb(s)
		}
	}
}
