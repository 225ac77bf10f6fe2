package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/hekeypad/pkg/device"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createKeysTab(state),
		createEngineTab(state),
		createMonitorTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// applySettings sanitizes and saves the configuration, then restarts the chain so the host
// keypad picks the new values up.
func applySettings(state *appState) {
	for _, fix := range state.cfg.Sanitize() {
		logger.Warn("corrected configuration", "fix", fix.String())
	}
	if err := state.cfg.Save(configPath()); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}

	wasConnected := state.connected()
	if wasConnected {
		disconnect(state)
	}
	state.rebuildMonitor()
	if wasConnected {
		handleConnect(state)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := device.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	} else {
		logger.Warn("failed to list serial ports", "error", err)
	}

	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
				state.cfg.Serial.Port = selectedPort
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Serial.BaudRate = baud
			}
			applySettings(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createKeysTab creates the tab editing one hall-effect key record at a time.
func createKeysTab(state *appState) *container.TabItem {
	layout := &state.cfg.Keypad.Layout
	if len(layout.HE) == 0 {
		return container.NewTabItem("Keys", widget.NewLabel("No hall-effect keys configured"))
	}

	selected := 0
	rapidCheck := widget.NewCheck("Rapid trigger", nil)
	continuousCheck := widget.NewCheck("Continuous rapid trigger", nil)
	outputCheck := widget.NewCheck("Output enabled", nil)
	pressEntry := widget.NewEntry()
	releaseEntry := widget.NewEntry()
	lowerEntry := widget.NewEntry()
	upperEntry := widget.NewEntry()
	calibrationLabel := widget.NewLabel("")

	load := func(i int) {
		k := layout.HE[i]
		rapidCheck.SetChecked(k.RapidTrigger)
		continuousCheck.SetChecked(k.ContinuousRapidTrigger)
		outputCheck.SetChecked(k.OutputEnabled)
		pressEntry.SetText(strconv.Itoa(int(k.PressSensitivity)))
		releaseEntry.SetText(strconv.Itoa(int(k.ReleaseSensitivity)))
		lowerEntry.SetText(strconv.Itoa(int(k.LowerHysteresis)))
		upperEntry.SetText(strconv.Itoa(int(k.UpperHysteresis)))
		calibrationLabel.SetText(fmt.Sprintf("rest %d, bottom %d", k.RestPosition, k.BottomPosition))
	}

	keySelect := widget.NewSelect(focusOptions(*layout)[1:], func(option string) {
		if i := focusIndex(option); i >= 0 && i < len(layout.HE) {
			selected = i
			load(i)
		}
	})
	keySelect.SetSelectedIndex(0)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Key", Widget: keySelect},
			{Text: "Mode", Widget: container.NewVBox(rapidCheck, continuousCheck)},
			{Text: "Output", Widget: outputCheck},
			{Text: "Press Sensitivity (0.01mm)", Widget: pressEntry},
			{Text: "Release Sensitivity (0.01mm)", Widget: releaseEntry},
			{Text: "Lower Hysteresis (0.01mm)", Widget: lowerEntry},
			{Text: "Upper Hysteresis (0.01mm)", Widget: upperEntry},
			{Text: "Calibration", Widget: calibrationLabel},
		},
		OnSubmit: func() {
			k := &layout.HE[selected]
			k.RapidTrigger = rapidCheck.Checked
			k.ContinuousRapidTrigger = continuousCheck.Checked
			k.OutputEnabled = outputCheck.Checked
			setUint16(&k.PressSensitivity, pressEntry.Text)
			setUint16(&k.ReleaseSensitivity, releaseEntry.Text)
			setUint16(&k.LowerHysteresis, lowerEntry.Text)
			setUint16(&k.UpperHysteresis, upperEntry.Text)
			applySettings(state)
			load(selected)
		},
	}

	return container.NewTabItem("Keys", form)
}

// createEngineTab creates the tab for settings shared by every key.
func createEngineTab(state *appState) *container.TabItem {
	engine := &state.cfg.Engine

	filterEntry := widget.NewEntry()
	filterEntry.SetText(strconv.Itoa(int(engine.FilterExponent)))

	deadzoneEntry := widget.NewEntry()
	deadzoneEntry.SetText(strconv.Itoa(int(engine.CalibrationDeadzone)))

	continuousEntry := widget.NewEntry()
	continuousEntry.SetText(strconv.Itoa(int(engine.ContinuousThreshold)))

	debounceEntry := widget.NewEntry()
	debounceEntry.SetText(engine.Debounce.String())

	invertCheck := widget.NewCheck("Invert sensor", nil)
	invertCheck.SetChecked(engine.InvertSensor)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Filter Exponent (2^n samples)", Widget: filterEntry},
			{Text: "Calibration Deadzone", Widget: deadzoneEntry},
			{Text: "Continuous Threshold (0.01mm)", Widget: continuousEntry},
			{Text: "Debounce", Widget: debounceEntry},
			{Text: "Sensor", Widget: invertCheck},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseUint(filterEntry.Text, 10, 8); err == nil {
				engine.FilterExponent = uint8(v)
			}
			setUint16(&engine.CalibrationDeadzone, deadzoneEntry.Text)
			setUint16(&engine.ContinuousThreshold, continuousEntry.Text)
			if d, err := time.ParseDuration(debounceEntry.Text); err == nil && d >= 0 {
				engine.Debounce = d
			}
			engine.InvertSensor = invertCheck.Checked
			applySettings(state)
		},
	}

	return container.NewTabItem("Engine", form)
}

// createMonitorTab creates the Monitor configuration tab.
func createMonitorTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Monitor.WindowSeconds))

	eventsEntry := widget.NewEntry()
	eventsEntry.SetText(strconv.Itoa(state.cfg.Monitor.MaxEvents))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Max Events", Widget: eventsEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Monitor.WindowSeconds = ws
			}
			if n, err := strconv.Atoi(eventsEntry.Text); err == nil && n > 0 {
				state.cfg.Monitor.MaxEvents = n
			}
			applySettings(state)
		},
	}

	return container.NewTabItem("Monitor", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	mock := &state.cfg.Mock

	restEntry := widget.NewEntry()
	restEntry.SetText(strconv.Itoa(int(mock.RestValue)))

	bottomEntry := widget.NewEntry()
	bottomEntry.SetText(strconv.Itoa(int(mock.BottomValue)))

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(strconv.Itoa(int(mock.NoiseLevel)))

	bounceEntry := widget.NewEntry()
	bounceEntry.SetText(mock.Bounce.String())

	strokeEntry := widget.NewEntry()
	strokeEntry.SetText(mock.StrokeTime.String())

	gapEntry := widget.NewEntry()
	gapEntry.SetText(mock.StrokeGap.String())

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(mock.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Rest Value", Widget: restEntry},
			{Text: "Bottom Value", Widget: bottomEntry},
			{Text: "Noise Level", Widget: noiseEntry},
			{Text: "Contact Bounce", Widget: bounceEntry},
			{Text: "Stroke Time", Widget: strokeEntry},
			{Text: "Stroke Gap", Widget: gapEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			setUint16(&mock.RestValue, restEntry.Text)
			setUint16(&mock.BottomValue, bottomEntry.Text)
			setUint16(&mock.NoiseLevel, noiseEntry.Text)
			if d, err := time.ParseDuration(bounceEntry.Text); err == nil && d >= 0 {
				mock.Bounce = d
			}
			setDuration(&mock.StrokeTime, strokeEntry.Text)
			setDuration(&mock.StrokeGap, gapEntry.Text)
			setDuration(&mock.SampleRate, sampleRateEntry.Text)
			applySettings(state)
		},
	}

	return container.NewTabItem("Mock", form)
}

// setUint16 stores text into dst if it parses; invalid input leaves dst unchanged.
func setUint16(dst *uint16, text string) {
	if v, err := strconv.ParseUint(text, 10, 16); err == nil {
		*dst = uint16(v)
	}
}

// setDuration stores a positive duration parsed from text into dst.
func setDuration(dst *time.Duration, text string) {
	if d, err := time.ParseDuration(text); err == nil && d > 0 {
		*dst = d
	}
}

