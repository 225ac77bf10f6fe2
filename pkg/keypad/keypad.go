// Package keypad runs the scan loop: every tick each key's raw input goes through conditioning,
// calibration and its state machine, and committed changes are emitted as events.
package keypad

import (
	"github.com/itohio/hekeypad/pkg/actuation"
	"github.com/itohio/hekeypad/pkg/calibration"
	"github.com/itohio/hekeypad/pkg/debounce"
	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/sample"
)

// Keypad owns the runtime of every key and borrows the layout for each scan.
// It is not safe for concurrent use; exactly one goroutine (or the firmware main loop) scans it.
type Keypad struct {
	layout      *key.Layout
	settings    key.Settings
	conditioner *sample.Conditioner
	tracker     calibration.Tracker
	policy      actuation.Policy

	keys    []Key
	he      []HallEffectKey
	digital []DigitalKey

	calibrationDirty bool
}

// New creates a keypad for layout. The number of keys is fixed by the layout at this point;
// the layout records must outlive the keypad.
func New(layout *key.Layout, s key.Settings, conditioner *sample.Conditioner) *Keypad {
	k := &Keypad{
		layout:      layout,
		settings:    s,
		conditioner: conditioner,
		tracker:     calibration.New(s),
		policy:      actuation.NewPolicy(s),
		he:          make([]HallEffectKey, len(layout.HE)),
		digital:     make([]DigitalKey, len(layout.Digital)),
	}

	k.keys = make([]Key, 0, len(k.he)+len(k.digital))
	for i := range k.he {
		k.he[i] = HallEffectKey{index: i, filter: sample.NewFilter(s.FilterExponent)}
		k.keys = append(k.keys, &k.he[i])
	}
	for i := range k.digital {
		k.digital[i] = DigitalKey{index: i, debouncer: debounce.New(s.DebounceTicks())}
		k.keys = append(k.keys, &k.digital[i])
	}

	return k
}

// Scan runs one tick over every key. now is a free running millisecond counter.
// The state machines always run; only the emission honours OutputEnabled.
func (k *Keypad) Scan(now uint32, sensor Sensor, sink Sink) {
	for _, kk := range k.keys {
		switch kk := kk.(type) {
		case *HallEffectKey:
			k.scanHE(kk, sensor.ReadHE(kk.index), sink)
		case *DigitalKey:
			k.scanDigital(kk, sensor.ReadDigital(kk.index), now, sink)
		}
	}
}

func (k *Keypad) scanHE(hk *HallEffectKey, raw uint16, sink Sink) {
	cfg := &k.layout.HE[hk.index]

	v := hk.filter.Apply(k.conditioner.Clamp(raw))
	hk.filtered = v

	if k.tracker.Observe(cfg, v) {
		k.calibrationDirty = true
	}
	rest, bottom := k.tracker.Reference(cfg)
	d := k.conditioner.Distance(v, rest, bottom)

	switch hk.machine.Update(d, cfg, k.policy) {
	case actuation.Press:
		emit(sink, HallEffect, cfg.Identity, Press)
	case actuation.Release:
		emit(sink, HallEffect, cfg.Identity, Release)
	}
}

func (k *Keypad) scanDigital(dk *DigitalKey, level bool, now uint32, sink Sink) {
	if !dk.debouncer.Update(level, now) {
		return
	}
	edge := Release
	if dk.debouncer.Pressed() {
		edge = Press
	}
	emit(sink, Digital, k.layout.Digital[dk.index].Identity, edge)
}

func emit(sink Sink, kind Kind, id key.Identity, edge Edge) {
	if !id.OutputEnabled || sink == nil {
		return
	}
	sink(Event{
		Kind:   kind,
		Index:  id.Index,
		Edge:   edge,
		Symbol: id.Symbol,
	})
}

// Keys returns every key, hall-effect keys first.
func (k *Keypad) Keys() []Key {
	return k.keys
}

// HE returns the hall-effect key at index i.
func (k *Keypad) HE(i int) *HallEffectKey {
	return &k.he[i]
}

// Digital returns the digital key at index i.
func (k *Keypad) Digital(i int) *DigitalKey {
	return &k.digital[i]
}

// Distance returns the last travel distance of hall-effect key i in 0.01mm.
func (k *Keypad) Distance(i int) uint16 {
	return k.he[i].Distance()
}

// Pressed returns the committed state of the key of kind at index i.
func (k *Keypad) Pressed(kind Kind, i int) bool {
	if kind == Digital {
		return k.digital[i].Pressed()
	}
	return k.he[i].Pressed()
}

// Layout returns the borrowed configuration table.
func (k *Keypad) Layout() *key.Layout {
	return k.layout
}

// Settings returns the engine settings.
func (k *Keypad) Settings() key.Settings {
	return k.settings
}

// CalibrationDirty reports whether calibration widened since the last MarkCalibrationSaved.
// The storage collaborator uses it to persist calibration lazily.
func (k *Keypad) CalibrationDirty() bool {
	return k.calibrationDirty
}

// MarkCalibrationSaved clears the dirty flag after the layout has been persisted.
func (k *Keypad) MarkCalibrationSaved() {
	k.calibrationDirty = false
}

// ResetCalibration restores the default calibration of every hall-effect key.
func (k *Keypad) ResetCalibration() {
	for i := range k.layout.HE {
		def := key.DefaultHE(uint8(i), k.settings.MaxTravel)
		def.RestPosition, def.BottomPosition = k.settings.DefaultCalibration()
		k.tracker.Reset(&k.layout.HE[i], def)
	}
	k.calibrationDirty = true
}

// Reset returns every key runtime to its boot state. The layout is left untouched.
func (k *Keypad) Reset() {
	for i := range k.he {
		k.he[i].filter.Reset()
		k.he[i].machine.Reset()
		k.he[i].filtered = 0
	}
	for i := range k.digital {
		k.digital[i].debouncer.Reset()
	}
}
