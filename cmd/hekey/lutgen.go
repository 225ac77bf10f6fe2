package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/hekeypad/pkg/lut"
)

var lutgenCmd = &cobra.Command{
	Use:   "lutgen",
	Short: "Generate the sensor to distance table",
	Long: `lutgen computes the 4096 entry table mapping a normalised hall sensor reading to key
travel for the configured magnet and writes it as Go source. Flags override the magnet
section of the config file.`,
	Args: cobra.NoArgs,
	RunE: runLutgen,
}

func init() {
	flags := lutgenCmd.Flags()
	flags.StringP("output", "o", "-", "output file (- for stdout)")
	flags.String("package", "lut", "package name of the generated source")
	flags.Float32("radius", 0, "magnet radius in mm")
	flags.Float32("thickness", 0, "magnet thickness in mm")
	flags.Float32("br", 0, "magnet residual induction in mT")
	flags.Float32("air-gap", 0, "sensor to magnet distance at full press in mm")
	flags.Uint16("travel", 0, "key travel in 0.01mm")

	rootCmd.AddCommand(lutgenCmd)
}

func runLutgen(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	m := cfg.Magnet
	travel := cfg.Engine.MaxTravel

	if flags.Changed("radius") {
		m.Radius, _ = flags.GetFloat32("radius")
	}
	if flags.Changed("thickness") {
		m.Thickness, _ = flags.GetFloat32("thickness")
	}
	if flags.Changed("br") {
		m.ResidualInduction, _ = flags.GetFloat32("br")
	}
	if flags.Changed("air-gap") {
		m.AirGap, _ = flags.GetFloat32("air-gap")
	}
	if flags.Changed("travel") {
		travel, _ = flags.GetUint16("travel")
	}
	pkg, _ := flags.GetString("package")
	output, _ := flags.GetString("output")

	if err := validateMagnet(m, travel); err != nil {
		return err
	}

	t := lut.Generate(m, travel)
	if ok, at := t.Monotonic(); !ok {
		return fmt.Errorf("generated table decreases at index %d", at)
	}

	write := func(w io.Writer) error {
		return lut.WriteSource(w, pkg, t, m, travel)
	}

	if output == "-" {
		if err := write(cmd.OutOrStdout()); err != nil {
			return err
		}
	} else {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		if err := writeAndClose(f, write); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
	}
	logger.Info("generated table", "output", output, "max", t.Max(), "travel", travel)
	return nil
}

// writeAndClose runs write on f and closes it, reporting the first error of the two.
func writeAndClose(f io.WriteCloser, write func(io.Writer) error) error {
	err := write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func validateMagnet(m lut.Magnet, travel uint16) error {
	switch {
	case m.Radius <= 0:
		return fmt.Errorf("magnet radius must be positive, got %g", m.Radius)
	case m.Thickness <= 0:
		return fmt.Errorf("magnet thickness must be positive, got %g", m.Thickness)
	case m.ResidualInduction <= 0:
		return fmt.Errorf("residual induction must be positive, got %g", m.ResidualInduction)
	case m.AirGap < 0:
		return fmt.Errorf("air gap must not be negative, got %g", m.AirGap)
	case travel == 0:
		return fmt.Errorf("travel must be positive")
	}
	return nil
}
