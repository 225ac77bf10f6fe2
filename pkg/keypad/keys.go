package keypad

import (
	"github.com/itohio/hekeypad/pkg/actuation"
	"github.com/itohio/hekeypad/pkg/debounce"
	"github.com/itohio/hekeypad/pkg/sample"
)

// Key is either a *HallEffectKey or a *DigitalKey.
type Key interface {
	Kind() Kind
	Index() int
	Pressed() bool
	isKey()
}

// HallEffectKey is the runtime of a hall-effect key. Its configuration lives in the layout
// at the same index.
type HallEffectKey struct {
	index    int
	filter   sample.Filter
	machine  actuation.Machine
	filtered uint16
}

func (k *HallEffectKey) Kind() Kind    { return HallEffect }
func (k *HallEffectKey) Index() int    { return k.index }
func (k *HallEffectKey) Pressed() bool { return k.machine.Pressed() }
func (k *HallEffectKey) isKey()        {}

// Filtered returns the last filtered raw sample.
func (k *HallEffectKey) Filtered() uint16 { return k.filtered }

// Distance returns the last travel distance in 0.01mm.
func (k *HallEffectKey) Distance() uint16 { return k.machine.State().Distance }

// State returns the actuation state.
func (k *HallEffectKey) State() actuation.State { return k.machine.State() }

// DigitalKey is the runtime of a digital key.
type DigitalKey struct {
	index     int
	debouncer debounce.Debouncer
}

func (k *DigitalKey) Kind() Kind    { return Digital }
func (k *DigitalKey) Index() int    { return k.index }
func (k *DigitalKey) Pressed() bool { return k.debouncer.Pressed() }
func (k *DigitalKey) isKey()        {}
