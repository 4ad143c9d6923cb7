package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/driftsave/pkg/driftsave/config"
	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
)

// errBlocking is returned when a preflight or repack left blocks that do
// not fit, so the process exits non-zero.
var errBlocking = errors.New("one or more blocks failed; see report")

var (
	cfgFile string

	// cfg is loaded by initializeLogging before any command runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "driftsave",
		Short: "Extract, edit and repack CarX Drift save files",
		Long: `driftsave unpacks the compressed records inside a save file into editable
block files, and packs edited blocks back into a save of the same size.

Typical session:
  driftsave extract memory.dat            # writes blocks under the work root
  driftsave blocks <dir>                  # list blocks and their capacity
  driftsave set <dir> 3 '$.coins' 500000  # edit a value
  driftsave preflight memory.dat          # check every block still fits
  driftsave repack memory.dat -o out.dat  # write the patched save`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/driftsave/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output on stderr")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().StringP("format", "f", "", "result format: "+strings.Join(output.Available(), ", ")+", template=<text>")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "parallel block workers (0=auto)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
}

// loadConfig reads the config file, environment and bound flags into cfg.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if dir, err := config.ConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	viper.SetEnvPrefix("DRIFTSAVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return config.Decode(viper.GetViper())
}

// Execute runs the root command. Interrupts cancel the running operation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr if quiet mode is not enabled, keeping
// stdout for results.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// render writes r to the command's stdout in the configured format.
func render(cmd *cobra.Command, r *output.Result) error {
	name := cfg.Format
	if name == "" {
		name = config.DefaultFormat
	}

	formatter, err := output.Get(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// absPath makes p absolute so indexed and journaled paths are stable.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
