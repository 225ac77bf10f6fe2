package keypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/lut"
	"github.com/itohio/hekeypad/pkg/sample"
)

const (
	rawRest   = 1800
	rawBottom = 1100
)

type fakeSensor struct {
	he      []uint16
	digital []bool
}

func (s *fakeSensor) ReadHE(i int) uint16      { return s.he[i] }
func (s *fakeSensor) ReadDigital(i int) bool   { return s.digital[i] }
func (s *fakeSensor) setHE(i int, v uint16)    { s.he[i] = v }
func (s *fakeSensor) setDigital(i int, v bool) { s.digital[i] = v }

type recorder struct {
	events []Event
}

func (r *recorder) sink(e Event) { r.events = append(r.events, e) }

func testSettings() key.Settings {
	s := key.DefaultSettings()
	s.FilterExponent = 0
	return s
}

func newTestKeypad(t *testing.T, he, digital int, enabled bool) (*Keypad, *key.Layout, *fakeSensor) {
	t.Helper()
	s := testSettings()
	layout := key.DefaultLayout(he, digital, s.MaxTravel)
	for i := range layout.HE {
		layout.HE[i].OutputEnabled = enabled
	}
	for i := range layout.Digital {
		layout.Digital[i].OutputEnabled = enabled
	}
	kp := New(&layout, s, sample.NewConditioner(&lut.DefaultTable, nil, s))
	sensor := &fakeSensor{he: make([]uint16, he), digital: make([]bool, digital)}
	for i := range sensor.he {
		sensor.he[i] = rawRest
	}
	return kp, &layout, sensor
}

func TestNew(t *testing.T) {
	kp, _, _ := newTestKeypad(t, 3, 2, false)

	keys := kp.Keys()
	require.Len(t, keys, 5)
	for i := 0; i < 3; i++ {
		assert.Equal(t, HallEffect, keys[i].Kind())
		assert.Equal(t, i, keys[i].Index())
		assert.IsType(t, &HallEffectKey{}, keys[i])
	}
	for i := 0; i < 2; i++ {
		assert.Equal(t, Digital, keys[3+i].Kind())
		assert.Equal(t, i, keys[3+i].Index())
		assert.IsType(t, &DigitalKey{}, keys[3+i])
	}
}

func TestScanHallEffectStroke(t *testing.T) {
	kp, _, sensor := newTestKeypad(t, 1, 0, true)
	rec := &recorder{}

	kp.Scan(0, sensor, rec.sink)
	assert.Equal(t, uint16(0), kp.Distance(0))
	assert.Empty(t, rec.events)

	sensor.setHE(0, rawBottom)
	kp.Scan(1, sensor, rec.sink)
	assert.Equal(t, uint16(key.MaxTravel), kp.Distance(0))
	assert.True(t, kp.Pressed(HallEffect, 0))

	sensor.setHE(0, rawRest)
	kp.Scan(2, sensor, rec.sink)
	assert.False(t, kp.Pressed(HallEffect, 0))

	require.Len(t, rec.events, 2)
	assert.Equal(t, Event{Kind: HallEffect, Index: 0, Edge: Press, Symbol: 'z'}, rec.events[0])
	assert.Equal(t, Event{Kind: HallEffect, Index: 0, Edge: Release, Symbol: 'z'}, rec.events[1])
}

func TestScanDistanceIsMonotonicInTravel(t *testing.T) {
	kp, _, sensor := newTestKeypad(t, 1, 0, false)

	prev := uint16(0)
	for raw := uint16(rawRest); raw >= rawBottom; raw -= 10 {
		sensor.setHE(0, raw)
		kp.Scan(0, sensor, nil)
		d := kp.Distance(0)
		assert.GreaterOrEqual(t, d, prev, "raw %d", raw)
		prev = d
	}
	assert.Equal(t, uint16(key.MaxTravel), prev)
}

func TestScanOutputDisabled(t *testing.T) {
	kp, _, sensor := newTestKeypad(t, 1, 1, false)
	rec := &recorder{}

	sensor.setHE(0, rawBottom)
	sensor.setDigital(0, true)
	kp.Scan(0, sensor, rec.sink)
	kp.Scan(100, sensor, rec.sink)

	assert.Empty(t, rec.events)
	assert.True(t, kp.Pressed(HallEffect, 0))
	assert.True(t, kp.Pressed(Digital, 0))
}

func TestScanNilSink(t *testing.T) {
	kp, _, sensor := newTestKeypad(t, 1, 1, true)
	sensor.setHE(0, rawBottom)
	sensor.setDigital(0, true)
	assert.NotPanics(t, func() {
		kp.Scan(0, sensor, nil)
		kp.Scan(100, sensor, nil)
	})
	assert.True(t, kp.Pressed(HallEffect, 0))
	assert.True(t, kp.Pressed(Digital, 0))
}

// Toggling output on one of two identical keypads must not change any key state.
func TestScanOutputToggleDoesNotAffectState(t *testing.T) {
	a, layoutA, sensorA := newTestKeypad(t, 2, 1, true)
	b, layoutB, sensorB := newTestKeypad(t, 2, 1, true)
	layoutB.HE[1].RapidTrigger = true
	layoutA.HE[1].RapidTrigger = true

	strokes := []uint16{1800, 1600, 1400, 1200, 1100, 1150, 1300, 1250, 1500, 1790, 1800, 1200, 1100, 1800}
	var recA, recB recorder
	now := uint32(0)
	for n, raw := range strokes {
		for tick := 0; tick < 60; tick++ {
			now++
			level := n%2 == 0 && tick%7 != 0

			sensorA.setHE(0, raw)
			sensorA.setHE(1, strokes[len(strokes)-1-n])
			sensorA.setDigital(0, level)
			sensorB.setHE(0, raw)
			sensorB.setHE(1, strokes[len(strokes)-1-n])
			sensorB.setDigital(0, level)

			enabled := tick%3 == 1
			for i := range layoutB.HE {
				layoutB.HE[i].OutputEnabled = enabled
			}
			layoutB.Digital[0].OutputEnabled = enabled

			a.Scan(now, sensorA, recA.sink)
			b.Scan(now, sensorB, recB.sink)

			for i := 0; i < 2; i++ {
				require.Equal(t, a.HE(i).State(), b.HE(i).State(), "tick %d key %d", now, i)
				require.Equal(t, a.HE(i).Filtered(), b.HE(i).Filtered())
			}
			require.Equal(t, a.Digital(0).debouncer, b.Digital(0).debouncer)
			require.Equal(t, layoutA.HE[0].RestPosition, layoutB.HE[0].RestPosition)
			require.Equal(t, layoutA.HE[0].BottomPosition, layoutB.HE[0].BottomPosition)
		}
	}

	assert.NotEmpty(t, recA.events)
	assert.Less(t, len(recB.events), len(recA.events))
}

func TestScanDigitalDebounce(t *testing.T) {
	kp, _, sensor := newTestKeypad(t, 0, 1, true)
	rec := &recorder{}

	bounce := []bool{true, false, true, false, true}
	for i, level := range bounce {
		sensor.setDigital(0, level)
		kp.Scan(uint32(i*5), sensor, rec.sink)
	}
	assert.Empty(t, rec.events)

	for now := uint32(25); now <= 100; now++ {
		kp.Scan(now, sensor, rec.sink)
	}
	require.Len(t, rec.events, 1)
	assert.Equal(t, Event{Kind: Digital, Index: 0, Edge: Press, Symbol: 'a'}, rec.events[0])

	sensor.setDigital(0, false)
	for now := uint32(101); now <= 200; now++ {
		kp.Scan(now, sensor, rec.sink)
	}
	require.Len(t, rec.events, 2)
	assert.Equal(t, Release, rec.events[1].Edge)
}

func TestScanOrder(t *testing.T) {
	kp, _, sensor := newTestKeypad(t, 1, 1, true)
	rec := &recorder{}

	sensor.setDigital(0, true)
	kp.Scan(0, sensor, rec.sink)
	sensor.setHE(0, rawBottom)
	kp.Scan(50, sensor, rec.sink)

	require.Len(t, rec.events, 2)
	assert.Equal(t, HallEffect, rec.events[0].Kind)
	assert.Equal(t, Digital, rec.events[1].Kind)
}

func TestScanCalibration(t *testing.T) {
	kp, layout, sensor := newTestKeypad(t, 1, 0, false)

	kp.Scan(0, sensor, nil)
	assert.False(t, kp.CalibrationDirty())

	sensor.setHE(0, 1900)
	kp.Scan(1, sensor, nil)
	assert.True(t, kp.CalibrationDirty())
	assert.Equal(t, uint16(1900), layout.HE[0].RestPosition)

	kp.MarkCalibrationSaved()
	assert.False(t, kp.CalibrationDirty())

	sensor.setHE(0, 1000)
	kp.Scan(2, sensor, nil)
	assert.True(t, kp.CalibrationDirty())
	assert.Equal(t, uint16(1000), layout.HE[0].BottomPosition)
	assert.Equal(t, uint16(key.MaxTravel), kp.Distance(0))

	kp.ResetCalibration()
	assert.Equal(t, uint16(key.DefaultRestPosition), layout.HE[0].RestPosition)
	assert.Equal(t, uint16(key.DefaultBottomPosition), layout.HE[0].BottomPosition)
}

func TestResetCalibrationInverted(t *testing.T) {
	s := testSettings()
	s.InvertSensor = true
	layout := key.DefaultLayout(2, 0, s.MaxTravel)
	kp := New(&layout, s, sample.NewConditioner(&lut.DefaultTable, nil, s))

	kp.ResetCalibration()
	assert.True(t, kp.CalibrationDirty())
	for i := range layout.HE {
		assert.Equal(t, uint16(key.DefaultBottomPosition), layout.HE[i].RestPosition)
		assert.Equal(t, uint16(key.DefaultRestPosition), layout.HE[i].BottomPosition)
	}
}

func TestScanClampsOutOfRange(t *testing.T) {
	kp, layout, sensor := newTestKeypad(t, 1, 0, false)

	sensor.setHE(0, 0xffff)
	assert.NotPanics(t, func() { kp.Scan(0, sensor, nil) })
	assert.Equal(t, uint16(4095), layout.HE[0].RestPosition)
	assert.Equal(t, uint16(0), kp.Distance(0))
}

func TestReset(t *testing.T) {
	kp, _, sensor := newTestKeypad(t, 1, 1, false)
	sensor.setHE(0, rawBottom)
	sensor.setDigital(0, true)
	kp.Scan(0, sensor, nil)
	kp.Scan(100, sensor, nil)
	require.True(t, kp.Pressed(HallEffect, 0))
	require.True(t, kp.Pressed(Digital, 0))

	kp.Reset()
	assert.False(t, kp.Pressed(HallEffect, 0))
	assert.False(t, kp.Pressed(Digital, 0))
	assert.Equal(t, uint16(0), kp.Distance(0))
}

func TestEventString(t *testing.T) {
	assert.Equal(t, `he2 press 'x'`, Event{Kind: HallEffect, Index: 2, Edge: Press, Symbol: 'x'}.String())
	assert.Equal(t, `digital0 release 'a'`, Event{Kind: Digital, Index: 0, Edge: Release, Symbol: 'a'}.String())
}
