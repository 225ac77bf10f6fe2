package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/itohio/hekeypad/pkg/protocol"
)

const (
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size of the frame and event channel buffers.
	DefaultBufferSize = 1000
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a keypad connected over a serial port.
type Serial struct {
	port     string
	baudRate int
	log      *slog.Logger

	conn      io.ReadWriteCloser
	frames    chan protocol.Frame
	events    chan protocol.Event
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}
}

// NewSerial creates a serial device. Zero values select the defaults; a nil logger uses slog.Default.
func NewSerial(port string, baudRate int, bufSize int, logger *slog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		log:      logger.With("port", port),
		frames:   make(chan protocol.Frame, bufSize),
		events:   make(chan protocol.Event, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}
	return result, nil
}

// Connect opens the serial port and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("serial port %s: device closed", d.port)
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.attach(port)
	return nil
}

// attach starts reading from conn. Must be called with mu held.
func (d *Serial) attach(conn io.ReadWriteCloser) {
	d.conn = conn
	d.connected = true
	d.done = make(chan struct{})
	go d.readLines(conn)
}

// Close closes the port and waits for the reader to stop.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	if err := d.conn.Close(); err != nil {
		d.log.Warn("failed to close serial port", "error", err)
	}
	d.conn = nil
	d.connected = false
	done := d.done
	d.mu.Unlock()

	<-done
	close(d.frames)
	close(d.events)
	return nil
}

func (d *Serial) Frames() <-chan protocol.Frame {
	return d.frames
}

func (d *Serial) Events() <-chan protocol.Event {
	return d.events
}

// SetStreaming turns raw frame streaming on or off.
func (d *Serial) SetStreaming(enabled bool) error {
	cmd := protocol.CommandStreamOff
	if enabled {
		cmd = protocol.CommandStreamOn
	}
	return d.send(cmd)
}

// ResetCalibration asks the firmware to restore default calibration.
func (d *Serial) ResetCalibration() error {
	return d.send(protocol.CommandResetCalibration)
}

func (d *Serial) send(cmd string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := io.WriteString(d.conn, cmd); err != nil {
		return fmt.Errorf("failed to send command %q: %w", strings.TrimSpace(cmd), err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readLines parses lines from r until it fails or the device is closed.
func (d *Serial) readLines(r io.Reader) {
	defer close(d.done)
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("panic in serial reader", "panic", rec)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if d.ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		msg, err := protocol.ParseLine(line)
		if err != nil {
			d.log.Debug("skipping line", "line", line, "error", err)
			continue
		}

		switch msg := msg.(type) {
		case protocol.Frame:
			select {
			case d.frames <- msg:
			default:
				d.log.Warn("frames channel full, dropping frame")
			}
		case protocol.Event:
			select {
			case d.events <- msg:
			case <-d.ctx.Done():
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		d.log.Error("failed to read from serial port", "error", err)
	}
}
