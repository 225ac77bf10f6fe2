// Package device connects the host to a keypad, either over a serial port or simulated.
package device

import (
	"errors"

	"github.com/itohio/hekeypad/pkg/protocol"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

// Device defines the interface for keypads (real or mocked).
// Frames and Events are closed by Close.
type Device interface {
	Connect() error
	Close() error
	Frames() <-chan protocol.Frame
	Events() <-chan protocol.Event
	SetStreaming(enabled bool) error
	ResetCalibration() error
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
)
