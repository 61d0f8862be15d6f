package main

import (
	"github.com/spf13/cobra"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
	"github.com/unique-Sachin/CounselPro-AI/pkg/log"
	"go.uber.org/zap"
)

var (
	configFile string
)

var rootCmd = &cobra.Command{
	Use:          "counselpro-api",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to an env file with the configuration")
}

// setup reads the configuration and installs the global logger. The returned func restores the previous logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel), cfg.Service.LogFormat)
	undo := zap.ReplaceGlobals(logger)

	return cfg, func() {
		_ = logger.Sync()
		undo()
	}, nil
}
