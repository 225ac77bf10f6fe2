// Package scope is a fyne widget drawing key travel traces like an oscilloscope.
package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/hekeypad/pkg/config"
	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/keypad"
	"github.com/itohio/hekeypad/pkg/monitor"
)

// ScopeWidget displays the travel of every hall-effect key, the hysteresis thresholds, press
// and release markers, and the state of digital keys as a strip below the plot.
type ScopeWidget struct {
	widget.BaseWidget

	maxTravel uint16
	window    time.Duration

	// Data (protected by mu)
	mu      sync.RWMutex
	he      [][]monitor.Point // downsampled, buffers reused between updates
	digital [][]monitor.Point
	events  []monitor.Record
	layout  key.Layout
	focus   int // hall-effect key whose thresholds are drawn, -1 for all

	xMin, xMax time.Duration

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		maxTravel:        cfg.Engine.MaxTravel,
		window:           time.Duration(cfg.Monitor.WindowSeconds * float64(time.Second)),
		focus:            -1,
		maxDisplayPoints: cfg.Monitor.ScopePoints,
	}
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// Focus selects the hall-effect key whose thresholds are drawn; -1 draws all of them.
func (s *ScopeWidget) Focus(i int) {
	s.mu.Lock()
	s.focus = i
	s.mu.Unlock()
	s.Refresh()
}

// UpdateData updates the widget from a monitor snapshot.
// This should be called from the monitor callback using fyne.Do().
func (s *ScopeWidget) UpdateData(snap monitor.Snapshot) {
	s.mu.Lock()

	s.he = downsampleAll(s.he, snap.HE, s.maxDisplayPoints)
	s.digital = downsampleAll(s.digital, snap.Digital, s.maxDisplayPoints)
	s.events = snap.Events
	s.layout = snap.Layout
	s.xMin, s.xMax = timeRange(snap.HE, snap.Digital, s.window)

	s.mu.Unlock()

	s.Refresh()
}

func downsampleAll(dst [][]monitor.Point, traces [][]monitor.Point, maxPoints int) [][]monitor.Point {
	if len(dst) != len(traces) {
		dst = make([][]monitor.Point, len(traces))
	}
	for i, trace := range traces {
		dst[i] = monitor.DownsampleTrace(dst[i], trace, maxPoints)
	}
	return dst
}

// timeRange returns the visible time span: it ends at the newest point and spans at least window.
func timeRange(he, digital [][]monitor.Point, window time.Duration) (time.Duration, time.Duration) {
	var first, last time.Duration
	seen := false
	for _, group := range [][][]monitor.Point{he, digital} {
		for _, trace := range group {
			if len(trace) == 0 {
				continue
			}
			if !seen || trace[0].Time < first {
				first = trace[0].Time
			}
			if !seen || trace[len(trace)-1].Time > last {
				last = trace[len(trace)-1].Time
			}
			seen = true
		}
	}
	if last-first < window {
		first = last - window
	}
	return first, last
}

// traceColor returns the color of hall-effect key i.
func traceColor(i int) color.RGBA {
	palette := []color.RGBA{
		{R: 255, G: 165, B: 0, A: 255},   // orange
		{R: 100, G: 200, B: 255, A: 255}, // light blue
		{R: 120, G: 220, B: 120, A: 255}, // green
		{R: 230, G: 100, B: 230, A: 255}, // magenta
	}
	return palette[i%len(palette)]
}

func edgeColor(e keypad.Edge) color.RGBA {
	if e == keypad.Release {
		return color.RGBA{R: 200, G: 60, B: 60, A: 255}
	}
	return color.RGBA{R: 240, G: 240, B: 240, A: 255}
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
