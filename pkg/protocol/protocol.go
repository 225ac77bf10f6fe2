// Package protocol is the line protocol spoken between the keypad firmware and the host.
//
// Device to host, one message per line:
//
//	F,<micros>,<tick>,<he0>,...,<heN>,<digital bits>   raw frame, only while streaming
//	E,<micros>,<h|d><index>,<p|r>,<symbol code>        committed key event
//
// Host to device:
//
//	s1 / s0   enable or disable raw frame streaming
//	c         reset calibration to defaults
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/keypad"
)

const (
	CommandStreamOn         = "s1\n"
	CommandStreamOff        = "s0\n"
	CommandResetCalibration = "c\n"
)

// Frame is one scan worth of raw inputs.
type Frame struct {
	Time    time.Duration // device uptime
	Tick    uint32        // millisecond tick passed to the scan loop
	HE      []uint16
	Digital []bool
}

// Event is a key event reported by the device.
type Event struct {
	Time time.Duration
	keypad.Event
}

// AppendFrame appends the line encoding of f, including the trailing newline.
func AppendFrame(b []byte, f Frame) []byte {
	b = append(b, 'F', ',')
	b = strconv.AppendUint(b, uint64(f.Time/time.Microsecond), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(f.Tick), 10)
	for _, v := range f.HE {
		b = append(b, ',')
		b = strconv.AppendUint(b, uint64(v), 10)
	}
	b = append(b, ',')
	for _, v := range f.Digital {
		if v {
			b = append(b, '1')
		} else {
			b = append(b, '0')
		}
	}
	return append(b, '\n')
}

// AppendEvent appends the line encoding of e, including the trailing newline.
func AppendEvent(b []byte, e Event) []byte {
	b = append(b, 'E', ',')
	b = strconv.AppendUint(b, uint64(e.Time/time.Microsecond), 10)
	b = append(b, ',')
	if e.Kind == keypad.Digital {
		b = append(b, 'd')
	} else {
		b = append(b, 'h')
	}
	b = strconv.AppendUint(b, uint64(e.Index), 10)
	if e.Edge == keypad.Release {
		b = append(b, ',', 'r', ',')
	} else {
		b = append(b, ',', 'p', ',')
	}
	b = strconv.AppendUint(b, uint64(e.Symbol), 10)
	return append(b, '\n')
}

// ParseLine parses a device line into a Frame or an Event.
func ParseLine(line string) (any, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	switch parts[0] {
	case "F":
		return parseFrame(parts)
	case "E":
		return parseEvent(parts)
	}
	return nil, fmt.Errorf("unknown message %q", parts[0])
}

func parseTime(s string) (time.Duration, error) {
	micros, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	return time.Duration(micros) * time.Microsecond, nil
}

func parseFrame(parts []string) (Frame, error) {
	if len(parts) < 4 {
		return Frame{}, fmt.Errorf("invalid frame: expected at least 4 fields, got %d", len(parts))
	}

	ts, err := parseTime(parts[1])
	if err != nil {
		return Frame{}, err
	}

	tick, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid tick: %w", err)
	}

	he := make([]uint16, 0, len(parts)-4)
	for i, s := range parts[3 : len(parts)-1] {
		v, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return Frame{}, fmt.Errorf("invalid reading of key %d: %w", i, err)
		}
		he = append(he, uint16(v))
	}

	bits := parts[len(parts)-1]
	digital := make([]bool, len(bits))
	for i := range len(bits) {
		switch bits[i] {
		case '0':
		case '1':
			digital[i] = true
		default:
			return Frame{}, fmt.Errorf("invalid digital state %q of key %d", bits[i], i)
		}
	}

	return Frame{
		Time:    ts,
		Tick:    uint32(tick),
		HE:      he,
		Digital: digital,
	}, nil
}

func parseEvent(parts []string) (Event, error) {
	if len(parts) != 5 {
		return Event{}, fmt.Errorf("invalid event: expected 5 fields, got %d", len(parts))
	}

	ts, err := parseTime(parts[1])
	if err != nil {
		return Event{}, err
	}

	var e keypad.Event
	id := parts[2]
	if len(id) < 2 {
		return Event{}, fmt.Errorf("invalid key %q", id)
	}
	switch id[0] {
	case 'h':
		e.Kind = keypad.HallEffect
	case 'd':
		e.Kind = keypad.Digital
	default:
		return Event{}, fmt.Errorf("invalid key kind %q", id[0])
	}
	index, err := strconv.ParseUint(id[1:], 10, 8)
	if err != nil {
		return Event{}, fmt.Errorf("invalid key index: %w", err)
	}
	e.Index = uint8(index)

	switch parts[3] {
	case "p":
		e.Edge = keypad.Press
	case "r":
		e.Edge = keypad.Release
	default:
		return Event{}, fmt.Errorf("invalid edge %q", parts[3])
	}

	symbol, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return Event{}, fmt.Errorf("invalid symbol: %w", err)
	}
	e.Symbol = key.Symbol(symbol)

	return Event{Time: ts, Event: e}, nil
}

// ReadHE makes a frame usable as a keypad sensor. Missing keys read as 0.
func (f Frame) ReadHE(i int) uint16 {
	if i >= len(f.HE) {
		return 0
	}
	return f.HE[i]
}

// ReadDigital makes a frame usable as a keypad sensor. Missing keys read as released.
func (f Frame) ReadDigital(i int) bool {
	return i < len(f.Digital) && f.Digital[i]
}
