package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itohio/hekeypad/pkg/config"
)

const defaultConfigFile = "hekey.yaml"

var (
	cfg    = config.Default()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "hekey",
	Short: "Host tools for the hall-effect keypad",
	Long: `hekey talks to a hall-effect keypad over its serial link, or to a simulated one,
replays the key engine on the raw samples the keypad streams and generates the
sensor to distance table used by the firmware.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigFile, "configuration file path")
	rootCmd.PersistentFlags().StringP("port", "p", "", "serial port override (e.g. COM3 or /dev/ttyACM0)")
	rootCmd.PersistentFlags().BoolP("mock", "m", false, "use a simulated keypad instead of the serial port")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level: error, warn, info or debug")

	bindFlags()
}

// bindFlags binds the global flags and HEKEY_* environment variables to viper keys.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("serial.port", flags.Lookup("port"))
	viper.BindPFlag("mock", flags.Lookup("mock"))
	viper.BindPFlag("logging.level", flags.Lookup("log-level"))

	viper.SetEnvPrefix("hekey")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	c, err := loadConfig(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	level, err := parseLogLevel(c.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	cfg = c
	logger = setupLogger(level, os.Stderr)
	for _, fix := range cfg.Sanitize() {
		logger.Warn("corrected configuration", "fix", fix.String())
	}
}

// loadConfig reads the config file and applies flag and environment overrides.
func loadConfig(path string) (*config.Config, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if port := viper.GetString("serial.port"); port != "" {
		c.Serial.Port = port
	}
	if level := viper.GetString("logging.level"); level != "" {
		c.Logging.Level = level
	}
	return c, nil
}

func configPath() string {
	if path := viper.GetString("config"); path != "" {
		return path
	}
	return defaultConfigFile
}
