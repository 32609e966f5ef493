package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/httprunner/InstallAgent/internal/config"
	"github.com/httprunner/InstallAgent/internal/version"
)

func newVersionCmd() *cobra.Command {
	var (
		flagProject     string
		flagPackage     string
		flagVersionName string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Compare the installed versionName with the declared one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(flagPackage) == "" {
				return errors.New("--package is required")
			}
			cfg := config.Load()
			dev, err := openDevice(cfg)
			if err != nil {
				return err
			}
			reconciler := version.NewReconciler(newShellClient(cfg), cfg.VersionWaitTimeout)
			out := cmd.OutOrStdout()
			if strings.TrimSpace(flagVersionName) == "" {
				installed, ok := reconciler.Installed(cmd.Context(), dev, flagPackage)
				if !ok {
					fmt.Fprintln(out, "unknown")
					return nil
				}
				fmt.Fprintln(out, installed)
				return nil
			}
			if m := reconciler.Reconcile(cmd.Context(), dev, flagProject, flagPackage, flagVersionName); m != nil {
				fmt.Fprintln(out, m.String())
				return nil
			}
			fmt.Fprintln(out, "match")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagProject, "project", "", "Project name used in mismatch reports")
	cmd.Flags().StringVar(&flagPackage, "package", "", "Application package name")
	cmd.Flags().StringVar(&flagVersionName, "version-name", "", "Declared versionName; empty prints the installed one")
	return cmd
}
