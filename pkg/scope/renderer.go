package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/monitor"
)

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 20
	marginBottom = 40
	digitalRow   = 14 // height of one digital key strip
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// plot maps key travel and time onto the drawing area.
type plot struct {
	x, y, width, height float32
	xMin, xMax          time.Duration
	maxTravel           uint16
}

func (p plot) timeX(t time.Duration) float32 {
	span := p.xMax - p.xMin
	if span <= 0 {
		return p.x
	}
	return p.x + float32(float64(t-p.xMin)/float64(span))*p.width
}

func (p plot) travelY(d uint16) float32 {
	if p.maxTravel == 0 {
		return p.y + p.height
	}
	return p.y + p.height - float32(d)/float32(p.maxTravel)*p.height
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope   *ScopeWidget
	grid    *canvas.Rectangle
	objects []fyne.CanvasObject
	size    fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)
	if r.size != size {
		r.size = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds every canvas object from the current data.
func (r *scopeRenderer) Refresh() {
	s := r.scope
	s.mu.RLock()
	he, digital, events, layout, focus := s.he, s.digital, s.events, s.layout, s.focus
	xMin, xMax, maxTravel := s.xMin, s.xMax, s.maxTravel
	s.mu.RUnlock()

	size := s.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	strip := float32(len(digital)) * digitalRow
	p := plot{
		x:         marginLeft,
		y:         marginTop,
		width:     size.Width - marginLeft - marginRight,
		height:    size.Height - marginTop - marginBottom - strip,
		xMin:      xMin,
		xMax:      xMax,
		maxTravel: maxTravel,
	}

	r.drawGrid(p)
	r.drawThresholds(p, layout, focus)
	for i, trace := range he {
		r.drawTrace(p, trace, traceColor(i))
	}
	r.drawDigital(p, digital)
	r.drawEvents(p, events, len(digital))
}

func (r *scopeRenderer) line(c color.Color, width float32, from, to fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1, l.Position2 = from, to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

// drawGrid draws horizontal travel lines every 0.5mm and ten vertical time divisions.
func (r *scopeRenderer) drawGrid(p plot) {
	for d := 0; d <= int(p.maxTravel); d += 50 {
		y := p.travelY(uint16(d))
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y))
		r.text(formatTravel(uint16(d)), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
	}

	const divisions = 10
	for i := range divisions + 1 {
		x := p.x + float32(i)*p.width/divisions
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.height))
		offset := (p.xMax - p.xMin) * time.Duration(i) / divisions
		r.text(formatTime(offset), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, r.size.Height-marginBottom+5))
	}
}

// drawThresholds draws the hysteresis pair of the focused key, or of every key.
func (r *scopeRenderer) drawThresholds(p plot, layout key.Layout, focus int) {
	for i, cfg := range layout.HE {
		if focus >= 0 && i != focus {
			continue
		}
		c := traceColor(i)
		c.A = 110
		for _, d := range []uint16{cfg.LowerHysteresis, cfg.UpperHysteresis} {
			y := p.travelY(d)
			r.line(c, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.width, y))
		}
	}
}

func (r *scopeRenderer) drawTrace(p plot, trace []monitor.Point, c color.Color) {
	for i := 1; i < len(trace); i++ {
		r.line(c, 1.5,
			fyne.NewPos(p.timeX(trace[i-1].Time), p.travelY(trace[i-1].Distance)),
			fyne.NewPos(p.timeX(trace[i].Time), p.travelY(trace[i].Distance)))
	}
}

// drawDigital draws one strip per digital key below the plot, lit while the key is pressed.
func (r *scopeRenderer) drawDigital(p plot, digital [][]monitor.Point) {
	on := color.RGBA{R: 240, G: 200, B: 60, A: 255}
	for k, trace := range digital {
		y := p.y + p.height + float32(k)*digitalRow + digitalRow/2
		for i := 1; i < len(trace); i++ {
			if !trace[i-1].Pressed {
				continue
			}
			r.line(on, digitalRow-4, fyne.NewPos(p.timeX(trace[i-1].Time), y), fyne.NewPos(p.timeX(trace[i].Time), y))
		}
	}
}

// drawEvents marks every press and release decided on the host with a vertical tick.
func (r *scopeRenderer) drawEvents(p plot, events []monitor.Record, digitalKeys int) {
	bottom := p.y + p.height + float32(digitalKeys)*digitalRow
	for _, e := range events {
		if e.Source != monitor.Host || e.Time < p.xMin {
			continue
		}
		x := p.timeX(e.Time)
		r.line(edgeColor(e.Edge), 1, fyne.NewPos(x, bottom-6), fyne.NewPos(x, bottom))
	}
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatTravel(d uint16) string {
	return fmt.Sprintf("%d.%02dmm", d/100, d%100)
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
