package device

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/hekeypad/pkg/keypad"
	"github.com/itohio/hekeypad/pkg/protocol"
)

// fakePort reads what the test writes into in and records what the device sends.
type fakePort struct {
	*io.PipeReader
	in *io.PipeWriter

	mu   sync.Mutex
	sent bytes.Buffer
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{PipeReader: r, in: w}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent.Write(b)
}

func (p *fakePort) Sent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent.String()
}

func connectFake(t *testing.T) (*Serial, *fakePort) {
	t.Helper()
	dev := NewSerial("fake", 0, 10, nil)
	port := newFakePort()
	dev.mu.Lock()
	dev.attach(port)
	dev.mu.Unlock()
	return dev, port
}

func TestNewSerial(t *testing.T) {
	dev := NewSerial("/dev/ttyACM0", 9600, 100, nil)
	assert.Equal(t, "/dev/ttyACM0", dev.port)
	assert.Equal(t, 9600, dev.baudRate)
	assert.Equal(t, 100, cap(dev.frames))
	assert.Equal(t, 100, cap(dev.events))
	assert.False(t, dev.IsConnected())
}

func TestNewSerial_Defaults(t *testing.T) {
	dev := NewSerial("/dev/ttyACM0", 0, 0, nil)
	assert.Equal(t, DefaultBaudRate, dev.baudRate)
	assert.Equal(t, DefaultBufferSize, cap(dev.frames))
	assert.NotNil(t, dev.log)
}

func TestSerial_NotConnected(t *testing.T) {
	dev := NewSerial("/dev/ttyACM0", 0, 0, nil)
	assert.ErrorIs(t, dev.SetStreaming(true), ErrNotConnected)
	assert.ErrorIs(t, dev.ResetCalibration(), ErrNotConnected)
	assert.NoError(t, dev.Close())
}

func TestSerial_Commands(t *testing.T) {
	dev, port := connectFake(t)
	defer dev.Close()

	require.True(t, dev.IsConnected())
	require.NoError(t, dev.SetStreaming(true))
	require.NoError(t, dev.SetStreaming(false))
	require.NoError(t, dev.ResetCalibration())
	assert.Equal(t, "s1\ns0\nc\n", port.Sent())

	assert.ErrorIs(t, dev.Connect(), ErrAlreadyConnected)
}

func TestSerial_ReadLines(t *testing.T) {
	dev, port := connectFake(t)

	go func() {
		io.WriteString(port.in, "# hekeypad booting\n")
		io.WriteString(port.in, "\n")
		io.WriteString(port.in, "F,1000,1,1800,1790,10\n")
		io.WriteString(port.in, "F,broken\n")
		io.WriteString(port.in, "E,2000,h0,p,122\r\n")
	}()

	select {
	case f := <-dev.Frames():
		assert.Equal(t, uint32(1), f.Tick)
		assert.Equal(t, []uint16{1800, 1790}, f.HE)
		assert.Equal(t, []bool{true, false}, f.Digital)
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
	}

	select {
	case e := <-dev.Events():
		assert.Equal(t, protocol.Event{
			Time:  2 * time.Millisecond,
			Event: keypad.Event{Kind: keypad.HallEffect, Index: 0, Edge: keypad.Press, Symbol: 'z'},
		}, e)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	require.NoError(t, dev.Close())
	assert.False(t, dev.IsConnected())

	_, ok := <-dev.Frames()
	assert.False(t, ok, "frames channel should be closed")
	_, ok = <-dev.Events()
	assert.False(t, ok, "events channel should be closed")
}

func TestSerial_DropsFramesWhenFull(t *testing.T) {
	dev, port := connectFake(t)

	for range 20 {
		_, err := io.WriteString(port.in, "F,1,1,1800,\n")
		require.NoError(t, err)
	}
	// the event is only delivered after every frame line has been consumed
	_, err := io.WriteString(port.in, "E,1,d0,r,97\n")
	require.NoError(t, err)

	select {
	case <-dev.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
	assert.Len(t, dev.Frames(), 10)
	require.NoError(t, dev.Close())
}
