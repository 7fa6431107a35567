package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivesync/internal/config"
	"github.com/Ning0612/drivesync/internal/logger"
	"github.com/Ning0612/drivesync/internal/service"
	"github.com/Ning0612/drivesync/internal/store"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/drivesync/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"debug logging",
	)
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// loadConfig loads the configuration and (re)initializes the global logger from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(globalFlags.ConfigFile)
	if err != nil {
		return nil, err
	}

	if err := logger.Shutdown(); err != nil {
		return nil, fmt.Errorf("failed to close previous logger: %w", err)
	}
	if err := logger.Init(cfg.Log.LoggerConfig()); err != nil {
		return nil, err
	}
	if globalFlags.Verbose {
		logger.SetLevel(logger.LevelDebug)
	}
	return cfg, nil
}

// openService loads the configuration and opens the store behind a service.
// The returned cleanup closes both.
func openService() (*service.OptimizeService, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := service.NewOptimizeService(cfg, st)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := svc.Close(); err != nil {
			logger.Get().Warn("failed to close storage", "error", err)
		}
		if err := st.Close(); err != nil {
			logger.Get().Warn("failed to close store", "error", err)
		}
	}
	return svc, cfg, cleanup, nil
}
