package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/httprunner/InstallAgent/internal/device"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List adb devices with their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := device.NewDefaultProvider()
			if err != nil {
				return err
			}
			infos, err := provider.Devices(cmd.Context())
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.Serial, info.State)
			}
			return nil
		},
	}
}
