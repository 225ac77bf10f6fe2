//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Scan configuration
	SCAN_INTERVAL = time.Millisecond // one tick of the key engine

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095), must match the engine

	// Serial configuration
	// A frame of 3 hall-effect and 2 digital keys is at most "F,4294967295000,4294967295,4095,4095,4095,11\n",
	// 45 bytes. Streaming every 1ms scan needs 45,000 bytes/sec, which is more than a 115200 baud UART
	// carries; the XIAO USB CDC link ignores the baud rate, so streaming is meant for USB.
	// Events alone are ~20 bytes each and fit any baud rate.
	UART_BAUD_RATE = 115200
)

var (
	// Hall-effect sensors (49E or similar), one per analog key
	hePins = [...]machine.Pin{machine.A0, machine.A1, machine.A2}

	// Digital switches to ground, read with internal pull-ups
	digitalPins = [...]machine.Pin{machine.D7, machine.D8}
)
