package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/httprunner/InstallAgent/internal/config"
	"github.com/httprunner/InstallAgent/internal/probe"
)

func newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <path>",
		Short: "Report whether a path exists on the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			dev, err := openDevice(cfg)
			if err != nil {
				return err
			}
			prober := probe.New(newShellClient(cfg), cfg.LsTimeout)
			state := "absent"
			if prober.Exists(cmd.Context(), dev, args[0]) {
				state = "present"
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
	return cmd
}
