package keypad

import (
	"fmt"

	"github.com/itohio/hekeypad/pkg/key"
)

// Kind tells hall-effect and digital keys apart.
type Kind uint8

const (
	HallEffect Kind = iota
	Digital
)

func (k Kind) String() string {
	if k == Digital {
		return "digital"
	}
	return "he"
}

// Edge is the direction of a committed state change.
type Edge uint8

const (
	Press Edge = iota
	Release
)

func (e Edge) String() string {
	if e == Release {
		return "release"
	}
	return "press"
}

// Event is emitted once per committed state change of a key with output enabled.
type Event struct {
	Kind   Kind
	Index  uint8
	Edge   Edge
	Symbol key.Symbol
}

func (e Event) String() string {
	return fmt.Sprintf("%s%d %s %q", e.Kind, e.Index, e.Edge, rune(e.Symbol))
}

// Sensor reads the current raw input of a key. Calls must not block.
type Sensor interface {
	ReadHE(index int) uint16
	ReadDigital(index int) bool
}

// Sink receives events. It is called synchronously from Scan.
type Sink func(Event)
