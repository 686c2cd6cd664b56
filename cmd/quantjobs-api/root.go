package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quantdesk/quantjobs/internal/config"
	"github.com/quantdesk/quantjobs/pkg/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use: "quantjobs-api",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}

// initLogger installs the global zap logger at the configured level and
// returns its sync function.
func initLogger(cfg *config.Config) func() {
	logLvl, err := zapcore.ParseLevel(cfg.Service.LogLevel)
	if err != nil {
		logLvl = zapcore.InfoLevel
	}

	logger := log.InitLog(zap.NewAtomicLevelAt(logLvl))
	undo := zap.ReplaceGlobals(logger)
	return func() {
		_ = logger.Sync()
		undo()
	}
}
