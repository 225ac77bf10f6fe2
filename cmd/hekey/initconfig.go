package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/hekeypad/pkg/config"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration",
	Long: `init-config writes the default configuration to the --config path. An existing
file is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path := configPath()

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
