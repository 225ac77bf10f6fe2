package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/itohio/hekeypad/internal/recovery"
	"github.com/itohio/hekeypad/pkg/config"
	"github.com/itohio/hekeypad/pkg/device"
	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/monitor"
)

// newDevice returns the simulated keypad when --mock is set, otherwise the serial one.
func newDevice(c *config.Config) device.Device {
	if viper.GetBool("mock") {
		return device.NewMock(c, logger)
	}
	return device.NewSerial(c.Serial.Port, c.Serial.BaudRate, device.DefaultBufferSize, logger)
}

func deviceName(c *config.Config) string {
	if viper.GetBool("mock") {
		return "simulated keypad"
	}
	return c.Serial.Port
}

// monitorChain tracks the goroutines feeding a monitor from a device for graceful shutdown.
type monitorChain struct {
	device     device.Device
	monitor    *monitor.Monitor
	framesDone chan struct{} // Closed when the frame goroutine exits
	eventsDone chan struct{} // Closed when the event goroutine exits
}

// startChain feeds the frames and events of a connected device into mon.
func startChain(dev device.Device, mon *monitor.Monitor) *monitorChain {
	c := &monitorChain{
		device:     dev,
		monitor:    mon,
		framesDone: make(chan struct{}),
		eventsDone: make(chan struct{}),
	}

	go func() {
		defer recovery.HandlePanicFunc(func() { dev.Close() })
		defer close(c.framesDone)
		mon.ProcessFrames(dev.Frames())
	}()
	go func() {
		defer recovery.HandlePanicFunc(func() { dev.Close() })
		defer close(c.eventsDone)
		mon.ProcessEvents(dev.Events())
	}()

	return c
}

// close closes the device, which closes its channels, and waits for both goroutines.
func (c *monitorChain) close() {
	if c == nil {
		return
	}
	if c.device != nil {
		if err := c.device.SetStreaming(false); err != nil {
			logger.Debug("failed to stop streaming", "error", err)
		}
		c.device.Close()
	}
	<-c.framesDone
	<-c.eventsDone
}

// applyCalibration copies the learned calibration bounds from src into dst.
// Only the calibration is copied: the monitor forces every output on.
func applyCalibration(dst *key.Layout, src key.Layout) int {
	n := 0
	for i := range dst.HE {
		if i >= len(src.HE) {
			break
		}
		d, s := &dst.HE[i], src.HE[i]
		if d.RestPosition != s.RestPosition || d.BottomPosition != s.BottomPosition {
			d.RestPosition = s.RestPosition
			d.BottomPosition = s.BottomPosition
			n++
		}
	}
	return n
}

// saveCalibration writes the calibration learned by mon into the config file if it changed.
func saveCalibration(c *config.Config, mon *monitor.Monitor, path string) error {
	layout, dirty := mon.Calibration()
	if !dirty {
		return nil
	}

	n := applyCalibration(&c.Keypad.Layout, layout)
	if err := c.Save(path); err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}
	mon.MarkCalibrationSaved()
	logger.Info("saved calibration", "keys", n, "path", path)
	return nil
}
