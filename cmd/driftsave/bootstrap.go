package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/config"
	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
)

// initializeLogging is the PersistentPreRunE hook: it loads configuration,
// ensures the XDG directories exist and starts file logging.
func initializeLogging(cmd *cobra.Command, args []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = loaded

	if err := ensureDirectories(); err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Rotation:   parseRotationConfig(cfg.Logging.Rotation),
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logging.Get("cli").Debug("command started", "command", commandName(cmd), "args", args)
	return nil
}

// ensureDirectories creates the config, data and state directories.
func ensureDirectories() error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	for _, dir := range []string{configDir, config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// parseRotationConfig converts the config file's rotation settings. An
// unparseable size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	parsed, err := logging.ParseRotation(rc.MaxSize, rc.MaxBackups, rc.MaxAge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using %d byte log files\n", err, logging.DefaultMaxSize)
		parsed.MaxSize = logging.DefaultMaxSize
	}
	return parsed
}

func commandName(cmd *cobra.Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.CommandPath()
}
