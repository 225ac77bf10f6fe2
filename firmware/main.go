//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/keypad"
	"github.com/itohio/hekeypad/pkg/lut"
	"github.com/itohio/hekeypad/pkg/protocol"
	"github.com/itohio/hekeypad/pkg/sample"
)

var (
	adcs [len(hePins)]machine.ADC
	uart = machine.Serial

	layout key.Layout
	kp     *keypad.Keypad

	// Current scan, shared with emit to keep the scan loop free of closures
	frame protocol.Frame

	streaming bool
	line      []byte // Output buffer reused for every message

	// Serial buffer for reading command lines
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	machine.InitADC()
	for i, pin := range hePins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(machine.ADCConfig{
			Reference:  ADC_REFERENCE_MV,
			Resolution: ADC_RESOLUTION,
		})
	}
	for _, pin := range digitalPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}

	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	settings := key.DefaultSettings()
	settings.AnalogResolution = ADC_RESOLUTION
	layout = key.DefaultLayout(len(hePins), len(digitalPins), settings.MaxTravel)
	// This board has no HID link, every key reports over serial.
	for i := range layout.HE {
		layout.HE[i].OutputEnabled = true
	}
	for i := range layout.Digital {
		layout.Digital[i].OutputEnabled = true
	}
	kp = keypad.New(&layout, settings, sample.NewConditioner(&lut.DefaultTable, nil, settings))

	frame.HE = make([]uint16, len(hePins))
	frame.Digital = make([]bool, len(digitalPins))
	line = make([]byte, 0, 64)

	println("# hekeypad ready")

	start := time.Now()
	next := start
	for {
		processSerial()

		now := time.Now()
		if now.Before(next) {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		next = next.Add(SCAN_INTERVAL)

		scan(now.Sub(start))
	}
}

// scan samples every input into frame and runs one engine tick over it.
func scan(elapsed time.Duration) {
	frame.Time = elapsed
	frame.Tick = uint32(elapsed / time.Millisecond)

	for i := range adcs {
		// Get scales the reading to 16 bits regardless of the configured resolution
		frame.HE[i] = adcs[i].Get() >> (16 - ADC_RESOLUTION)
	}
	for i, pin := range digitalPins {
		frame.Digital[i] = !pin.Get() // active low
	}

	kp.Scan(frame.Tick, &frame, emit)

	if streaming {
		line = protocol.AppendFrame(line[:0], frame)
		uart.Write(line)
	}
}

func emit(e keypad.Event) {
	line = protocol.AppendEvent(line[:0], protocol.Event{Time: frame.Time, Event: e})
	uart.Write(line)
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos > 0 {
				handleCommand(serialBuffer[:serialPos])
			}
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
	}
}

func handleCommand(cmd []byte) {
	switch {
	case isCommand(cmd, protocol.CommandStreamOn):
		streaming = true
	case isCommand(cmd, protocol.CommandStreamOff):
		streaming = false
	case isCommand(cmd, protocol.CommandResetCalibration):
		kp.ResetCalibration()
		kp.MarkCalibrationSaved()
		println("# calibration reset")
	}
}

// isCommand reports whether cmd equals command without its line terminator.
func isCommand(cmd []byte, command string) bool {
	return len(cmd) == len(command)-1 && string(cmd) == command[:len(cmd)]
}
