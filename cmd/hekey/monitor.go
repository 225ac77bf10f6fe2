package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/hekeypad/pkg/key"
	"github.com/itohio/hekeypad/pkg/keypad"
	"github.com/itohio/hekeypad/pkg/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream raw samples and log key transitions",
	Long: `monitor enables raw streaming on the keypad, replays the key engine on the host and
logs every transition decided by the host and reported by the device. It runs until
interrupted or until --duration elapses, then prints per key transition counts.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationP("duration", "d", 0, "stop after this long (0 runs until interrupted)")
	monitorCmd.Flags().Duration("status-interval", 0, "print the state of every hall-effect key at this interval (0 disables)")
	monitorCmd.Flags().Bool("save-calibration", false, "write the calibration learned on the host back to the config file")

	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	duration, _ := cmd.Flags().GetDuration("duration")
	interval, _ := cmd.Flags().GetDuration("status-interval")
	save, _ := cmd.Flags().GetBool("save-calibration")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	dev := newDevice(cfg)
	if err := dev.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", deviceName(cfg), err)
	}
	logger.Info("connected", "device", deviceName(cfg))

	mon := monitor.New(cfg, logger)
	chain := startChain(dev, mon)
	if err := dev.SetStreaming(true); err != nil {
		chain.close()
		return fmt.Errorf("failed to enable streaming: %w", err)
	}

	watch(ctx, cmd.OutOrStdout(), mon, interval)
	chain.close()
	logger.Info("disconnected", "device", deviceName(cfg))

	writeSummary(cmd.OutOrStdout(), cfg.Keypad.Layout, mon.Stats)

	if save {
		return saveCalibration(cfg, mon, configPath())
	}
	if _, dirty := mon.Calibration(); dirty {
		logger.Info("calibration changed, rerun with --save-calibration to keep it")
	}
	return nil
}

// watch blocks until ctx is done, printing key status every interval.
func watch(ctx context.Context, w io.Writer, mon monitor.KeyMonitor, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeStatus(w, mon.Snapshot())
		}
	}
}

// writeStatus prints the latest point of every hall-effect trace on one line.
func writeStatus(w io.Writer, snap monitor.Snapshot) {
	first := true
	for i, trace := range snap.HE {
		if len(trace) == 0 {
			continue
		}
		p := trace[len(trace)-1]
		if !first {
			fmt.Fprint(w, "  ")
		}
		first = false

		state := "up"
		if p.Pressed {
			state = "down"
		}
		fmt.Fprintf(w, "h%d raw=%d travel=%s %s", i, p.Raw, millimeters(p.Distance), state)
	}
	if !first {
		fmt.Fprintln(w)
	}
}

// writeSummary prints the transition counts of every key decided on the host.
func writeSummary(w io.Writer, layout key.Layout, stats func(keypad.Kind, int) monitor.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSYMBOL\tPRESSES\tRELEASES")
	for i, k := range layout.HE {
		s := stats(keypad.HallEffect, i)
		fmt.Fprintf(tw, "h%d\t%q\t%d\t%d\n", i, rune(k.Symbol), s.Presses, s.Releases)
	}
	for i, k := range layout.Digital {
		s := stats(keypad.Digital, i)
		fmt.Fprintf(tw, "d%d\t%q\t%d\t%d\n", i, rune(k.Symbol), s.Presses, s.Releases)
	}
	tw.Flush()
}

// millimeters formats a distance in 0.01mm.
func millimeters(d uint16) string {
	return fmt.Sprintf("%d.%02dmm", d/100, d%100)
}
