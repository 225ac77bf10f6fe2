package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/cobra"

	"github.com/itohio/hekeypad/pkg/config"
	"github.com/itohio/hekeypad/pkg/device"
	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/monitor"
	"github.com/itohio/hekeypad/pkg/scope"
)

// updateInterval keeps the scope at ~60 FPS.
const updateInterval = 16 * time.Millisecond

const allKeys = "All keys"

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Show live key travel in a window",
	Long: `scope opens a window plotting the travel of every hall-effect key, its hysteresis
thresholds, digital key levels and the transitions decided on the host.`,
	Args: cobra.NoArgs,
	RunE: runScope,
}

func init() {
	rootCmd.AddCommand(scopeCmd)
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	device      device.Device
	monitor     *monitor.Monitor
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	saveBtn     *widget.Button
	resetBtn    *widget.Button
	focusSelect *widget.Select
	chain       *monitorChain // Current chain (nil if not connected)
}

func runScope(_ *cobra.Command, _ []string) error {
	application := app.NewWithID("com.itohio.hekeypad")

	window := application.NewWindow("Hall-Effect Keypad")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:    cfg,
		window: window,
	}
	state.scopeWidget = scope.New(cfg)
	state.rebuildMonitor()

	toolbar := createToolbar(state)

	window.SetContent(container.NewBorder(toolbar, nil, nil, nil, state.scopeWidget))
	window.ShowAndRun()

	// The app has quit, only the chain is left to stop
	state.chain.close()
	return nil
}

// rebuildMonitor creates a monitor for the current configuration.
func (state *appState) rebuildMonitor() {
	state.monitor = monitor.New(state.cfg, logger)
	state.monitor.SetThrottle(updateInterval)
	state.monitor.OnUpdate(func(snap monitor.Snapshot) {
		fyne.Do(func() {
			state.scopeWidget.UpdateData(snap)
		})
	})
}

func (state *appState) connected() bool {
	return state.device != nil && state.device.IsConnected()
}

// createToolbar creates the toolbar with Connect, Settings and calibration buttons on the left
// and the key focus selector on the right.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.saveBtn = widget.NewButtonWithIcon("", theme.DocumentSaveIcon(), func() {
		if err := saveCalibration(state.cfg, state.monitor, configPath()); err != nil {
			dialog.ShowError(err, state.window)
		}
	})
	state.saveBtn.Disable()

	state.resetBtn = widget.NewButtonWithIcon("", theme.HistoryIcon(), func() {
		handleResetCalibration(state)
	})
	state.resetBtn.Disable()

	state.focusSelect = widget.NewSelect(focusOptions(state.cfg.Keypad.Layout), func(selected string) {
		state.scopeWidget.Focus(focusIndex(selected))
	})
	state.focusSelect.SetSelected(allKeys)

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(state.connectBtn, settingsBtn, state.saveBtn, state.resetBtn), // left
		state.focusSelect, // right
		nil,               // center (spacer)
	)
}

// focusOptions lists the selectable hall-effect keys.
func focusOptions(l key.Layout) []string {
	options := []string{allKeys}
	for i, k := range l.HE {
		options = append(options, fmt.Sprintf("h%d %q", i, rune(k.Symbol)))
	}
	return options
}

// focusIndex returns the key index of a focus option, or -1 for all keys.
func focusIndex(option string) int {
	var i int
	if _, err := fmt.Sscanf(option, "h%d", &i); err != nil {
		return -1
	}
	return i
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.connected() {
		disconnect(state)
		logger.Info("disconnected", "device", deviceName(state.cfg))
		return
	}

	dev := newDevice(state.cfg)
	if err := dev.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", deviceName(state.cfg), err), state.window)
		return
	}
	state.device = dev
	logger.Info("connected", "device", deviceName(state.cfg))

	// Allow callbacks again after the previous chain shut down
	state.monitor.ResetShutdown()
	state.chain = startChain(dev, state.monitor)

	if err := dev.SetStreaming(true); err != nil {
		disconnect(state)
		dialog.ShowError(fmt.Errorf("failed to enable streaming: %w", err), state.window)
		return
	}

	state.connectBtn.SetIcon(theme.LogoutIcon())
	state.saveBtn.Enable()
	state.resetBtn.Enable()
}

// disconnect gracefully closes the current chain.
func disconnect(state *appState) {
	state.chain.close()
	state.chain = nil
	state.device = nil

	if state.connectBtn != nil {
		state.connectBtn.SetIcon(theme.LoginIcon())
		state.resetBtn.Disable()
	}
}

// handleResetCalibration resets calibration on the device and on the host.
func handleResetCalibration(state *appState) {
	dialog.ShowConfirm("Reset calibration", "Forget the learned rest and bottom positions of every key?",
		func(ok bool) {
			if !ok {
				return
			}
			if state.connected() {
				if err := state.device.ResetCalibration(); err != nil {
					dialog.ShowError(fmt.Errorf("failed to reset calibration: %w", err), state.window)
					return
				}
			}
			state.monitor.ResetCalibration()
		}, state.window)
}
