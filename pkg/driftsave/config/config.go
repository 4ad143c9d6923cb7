package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HistoryConfig configures the operation journal.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// IndexConfig configures the workspace index.
type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	WorkRoot  string `mapstructure:"work_root"`
	GzipLevel int    `mapstructure:"gzip_level"`
	Checksum  string `mapstructure:"checksum"`
	Workers   int    `mapstructure:"workers"`
	Format    string `mapstructure:"format"`
	Report    struct {
		MaxWarnings int `mapstructure:"max_warnings"`
	} `mapstructure:"report"`
	History HistoryConfig `mapstructure:"history"`
	Index   IndexConfig   `mapstructure:"index"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/driftsave/config.yaml
//   - $HOME/.config/driftsave/config.yaml
//
// Environment variables are prefixed with DRIFTSAVE_ (e.g. DRIFTSAVE_WORK_ROOT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "driftsave"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "driftsave"))

	v.SetEnvPrefix("DRIFTSAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return Decode(v)
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("work_root", DefaultWorkRoot())
	v.SetDefault("gzip_level", DefaultGzipLevel)
	v.SetDefault("checksum", DefaultChecksum)
	v.SetDefault("workers", 0)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("report.max_warnings", DefaultMaxWarnings)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("index.enabled", true)
	v.SetDefault("index.path", DefaultIndexPath())

	v.SetDefault("watch.debounce", DefaultWatchDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", map[string]string{
		"container": "info",
		"extract":   "info",
		"repack":    "info",
		"watch":     "info",
	})
}

// Decode unmarshals v into a Config, expands ~ in paths and validates the
// result.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.WorkRoot, &cfg.History.Path, &cfg.Index.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.GzipLevel < 1 || c.GzipLevel > 9 {
		return fmt.Errorf("gzip_level must be between 1 and 9, got %d", c.GzipLevel)
	}
	switch c.Checksum {
	case "sha1", "blake3":
	default:
		return fmt.Errorf("checksum must be sha1 or blake3, got %q", c.Checksum)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "driftsave"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "driftsave"), nil
}

// ConfigPath returns the path WriteDefault writes to.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a commented default config file if none exists and
// returns its path.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# driftsave configuration

# Parent directory for extraction workspaces. Each save gets
# <work_root>/<stem>_<size>_<checksum prefix>.
work_root: %s

# gzip level used when re-encoding Fixed blocks (1-9)
gzip_level: %d

# Fingerprint algorithm for new extractions: sha1 or blake3
checksum: %s

# Parallel block workers (0 = number of CPUs)
workers: 0

# Result format: pretty, plain, json, yaml, template=<go template>
format: %s

report:
  # Warnings listed in text reports
  max_warnings: %d

# Journal of extract, preflight and repack runs
history:
  enabled: true
  path: %s
  retention_days: %d

# Index of extraction workspaces by base file checksum
index:
  enabled: true
  path: %s

watch:
  # Quiet period before re-running preflight after an edit
  debounce: %s

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/driftsave/driftsave.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
  components:
    container: info
    extract: info
    repack: info
    watch: info
`, DefaultWorkRoot(), DefaultGzipLevel, DefaultChecksum, DefaultFormat, DefaultMaxWarnings,
		DefaultHistoryPath(), DefaultRetentionDays, DefaultIndexPath(), DefaultWatchDebounce)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/driftsave.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "driftsave")
}

// StateDir returns $XDG_STATE_HOME/driftsave.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "driftsave")
}

// DefaultWorkRoot returns the default parent of extraction workspaces.
func DefaultWorkRoot() string {
	return filepath.Join(DataDir(), "work")
}

// DefaultHistoryPath returns the default history directory.
func DefaultHistoryPath() string {
	return filepath.Join(StateDir(), "history")
}

// DefaultIndexPath returns the default workspace index directory.
func DefaultIndexPath() string {
	return filepath.Join(DataDir(), "index")
}
