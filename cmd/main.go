package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/httprunner/InstallAgent/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "installagent",
	Short: "Incremental bundle installer for adb devices",
	Long:  `installagent CLI 将变更的 bundle APK 增量安装到单台 adb 设备，安装前核对已安装版本，并把产物快照与安装记录写入本地 SQLite。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(rootLogLevel)
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(level)
		return nil
	},
	SilenceUsage: true,
}

var (
	rootSerial   string
	rootLogLevel string
	rootDBPath   string
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.PersistentFlags().StringVarP(&rootSerial, "serial", "s", "", "目标设备序列号，覆盖 ANDROID_SERIAL")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "日志级别 (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&rootDBPath, "db", "", "SQLite 状态库路径，覆盖 INSTALL_STATE_DB_PATH")
	rootCmd.AddCommand(
		newInstallCmd(),
		newProbeCmd(),
		newVersionCmd(),
		newDevicesCmd(),
		newHistoryCmd(),
	)
	_ = env.Ensure()
}

func parseLogLevel(raw string) (zerolog.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid --log-level %q", raw)
	}
	return level, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("installagent command failed")
	}
}
