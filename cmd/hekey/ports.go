package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/hekeypad/pkg/device"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ports, err := device.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range ports {
			if p.Description != "" && p.Description != p.Name {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Name, p.Description)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), p.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
