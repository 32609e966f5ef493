package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/httprunner/InstallAgent/internal/config"
	"github.com/httprunner/InstallAgent/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var flagLimit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent installs recorded for the device",
		Long:  "按时间倒序列出本地 SQLite 中记录的该设备安装结果。",
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := resolveSerial()
			if err != nil {
				return err
			}
			cfg := config.Load()
			store, err := storage.Open(firstNonEmpty(rootDBPath, cfg.StateDBPath))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentInstalls(cmd.Context(), serial, flagLimit)
			if err != nil {
				return err
			}
			writeHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func writeHistory(w io.Writer, runs []storage.InstallRun) {
	for _, run := range runs {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%d artifacts",
			run.StartedAt.Format(time.RFC3339), run.State, run.Mode, run.Variant, run.Package, len(run.Artifacts))
		if run.ErrorMessage != "" {
			line += "\t" + strings.ReplaceAll(run.ErrorMessage, "\n", " ")
		}
		fmt.Fprintln(w, line)
	}
}
