package device

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/hekeypad/pkg/config"
	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/keypad"
	"github.com/itohio/hekeypad/pkg/lut"
	"github.com/itohio/hekeypad/pkg/protocol"
	"github.com/itohio/hekeypad/pkg/sample"
)

// Mock simulates a keypad running the firmware: keys follow a repeating stroke script and the
// same scan loop as the device decides on events.
type Mock struct {
	cfg      config.MockConfig
	settings key.Settings
	layout   key.Layout
	table    *lut.Table
	keypad   *keypad.Keypad
	rng      *rand.Rand
	log      *slog.Logger

	frames    chan protocol.Frame
	events    chan protocol.Event
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	streaming bool
	start     time.Time
	done      chan struct{}
}

// NewMock creates a simulated keypad. A nil cfg uses config.Default.
func NewMock(cfg *config.Config, logger *slog.Logger) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mock{
		cfg:      cfg.Mock,
		settings: cfg.Engine,
		layout:   cloneLayout(cfg.Keypad.Layout),
		table:    &lut.DefaultTable,
		rng:      rand.New(rand.NewPCG(1, 2)),
		log:      logger.With("device", "mock"),
		frames:   make(chan protocol.Frame, DefaultBufferSize),
		events:   make(chan protocol.Event, DefaultBufferSize),
	}
	m.keypad = keypad.New(&m.layout, m.settings,
		sample.NewConditioner(m.table, cfg.CorrectionTable(), m.settings))
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

func cloneLayout(l key.Layout) key.Layout {
	return key.Layout{
		HE:      append([]key.HEConfig(nil), l.HE...),
		Digital: append([]key.DigitalConfig(nil), l.Digital...),
	}
}

// Connect starts the simulation.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}
	if m.ctx.Err() != nil {
		return fmt.Errorf("mock: device closed")
	}

	m.connected = true
	m.start = time.Now()
	m.done = make(chan struct{})
	go m.run()

	return nil
}

// Close stops the simulation and closes the channels.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	done := m.done
	m.mu.Unlock()

	<-done
	close(m.frames)
	close(m.events)
	return nil
}

func (m *Mock) Frames() <-chan protocol.Frame {
	return m.frames
}

func (m *Mock) Events() <-chan protocol.Event {
	return m.events
}

// SetStreaming turns raw frame generation on or off.
func (m *Mock) SetStreaming(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.streaming = enabled
	return nil
}

// ResetCalibration restores the default calibration of the simulated keys.
func (m *Mock) ResetCalibration() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	m.keypad.ResetCalibration()
	return nil
}

// IsConnected returns whether the simulation is running.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Mock) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.step(now.Sub(m.start))
		}
	}
}

// step scans one simulated frame and publishes the results without blocking.
func (m *Mock) step(elapsed time.Duration) {
	m.mu.Lock()
	frame := m.frameAt(elapsed)
	m.keypad.Scan(frame.Tick, frame, func(e keypad.Event) {
		select {
		case m.events <- protocol.Event{Time: elapsed, Event: e}:
		default:
			m.log.Warn("events channel full, dropping event", "event", e)
		}
	})
	streaming := m.streaming
	m.mu.Unlock()

	if !streaming {
		return
	}
	select {
	case m.frames <- frame:
	default:
	}
}

// frameAt builds the raw frame of every key at elapsed time since connect.
func (m *Mock) frameAt(elapsed time.Duration) protocol.Frame {
	f := protocol.Frame{
		Time:    elapsed,
		Tick:    uint32(elapsed / time.Millisecond),
		HE:      make([]uint16, len(m.layout.HE)),
		Digital: make([]bool, len(m.layout.Digital)),
	}
	for i := range f.HE {
		f.HE[i] = m.rawFor(m.travelAt(elapsed, i, len(f.HE)))
	}
	for i := range f.Digital {
		f.Digital[i] = m.levelAt(elapsed, i, len(f.Digital))
	}
	return f
}

// cycle returns the stroke script period: idle, press, flutter while held, release.
func (m *Mock) cycle() (gap, stroke, hold, period time.Duration) {
	gap, stroke = m.cfg.StrokeGap, m.cfg.StrokeTime
	hold = gap/2 + stroke
	return gap, stroke, hold, gap + 2*stroke + hold
}

// phase returns the position of key i of n within its stroke cycle.
func (m *Mock) phase(elapsed time.Duration, i, n int) time.Duration {
	_, _, _, period := m.cycle()
	return (elapsed + period*time.Duration(i)/time.Duration(n)) % period
}

// travelAt returns the scripted travel of hall-effect key i of n in 0.01mm.
// While held the key is lifted by a quarter of the travel and pressed again.
func (m *Mock) travelAt(elapsed time.Duration, i, n int) uint16 {
	gap, stroke, hold, _ := m.cycle()
	full := int64(m.settings.MaxTravel)
	t := m.phase(elapsed, i, n)

	switch {
	case t < gap:
		return 0
	case t < gap+stroke:
		return uint16(full * int64(t-gap) / int64(stroke))
	case t < gap+stroke+hold:
		t -= gap + stroke
		half := int64(hold / 2)
		lift := int64(t)
		if lift > half {
			lift = int64(hold) - lift
		}
		return uint16(full - full/4*lift/half)
	}
	t -= gap + stroke + hold
	return uint16(full - full*int64(t)/int64(stroke))
}

// levelAt returns the scripted contact level of digital key i of n, bouncing after each edge.
func (m *Mock) levelAt(elapsed time.Duration, i, n int) bool {
	gap, _, _, period := m.cycle()
	t := (m.phase(elapsed, i, n) + period/3) % period

	pressed := t >= gap
	var sinceEdge time.Duration
	if pressed {
		sinceEdge = t - gap
	} else {
		sinceEdge = t
	}
	if sinceEdge < m.cfg.Bounce && (elapsed/time.Millisecond)%2 == 0 {
		return !pressed
	}
	return pressed
}

// rawFor converts travel into a sensor reading through the inverse distance table.
func (m *Mock) rawFor(travel uint16) uint16 {
	rest, bottom := int(m.cfg.RestValue), int(m.cfg.BottomValue)
	idx := m.table.IndexOf(travel)
	raw := rest + (bottom-rest)*idx/(lut.Size-1)

	if n := int(m.cfg.NoiseLevel); n > 0 {
		raw += m.rng.IntN(2*n+1) - n
	}

	switch {
	case raw < 0:
		return 0
	case raw > int(m.settings.MaxSample()):
		return m.settings.MaxSample()
	}
	return uint16(raw)
}
