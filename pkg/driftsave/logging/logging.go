// Package logging provides component loggers with file rotation for the
// driftsave CLI.
//
// Basic usage:
//
//	cfg := logging.Config{
//	    Level: "info",
//	    Path:  logging.DefaultLogPath(),
//	}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("extract")
//	logger.Info("extraction started", "base", "memory.dat")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a charm log level. Only the four levels below are configurable.
type Level = log.Level

const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// ErrInvalidLevel is returned by ParseLevel for names other than debug, info,
// warn (or warning) and error.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel converts a level name, ignoring case.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	switch name {
	case "debug", "info", "warn", "error":
		return log.ParseLevel(name)
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their log levels.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level.
	// Empty disables console output.
	ConsoleLevel string
}

// Logger is a component logger. It resolves its sinks on every call, so a
// Logger obtained before Init starts writing once Init has run.
type Logger struct {
	component string
	fields    []any
}

func (l *Logger) Debug(msg string, kv ...any) { l.emit(LevelDebug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.emit(LevelInfo, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.emit(LevelWarn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.emit(LevelError, msg, kv) }

// With returns a logger that adds kv to every entry.
func (l *Logger) With(kv ...any) *Logger {
	fields := make([]any, 0, len(l.fields)+len(kv))
	fields = append(append(fields, l.fields...), kv...)
	return &Logger{component: l.component, fields: fields}
}

func (l *Logger) emit(level Level, msg string, kv []any) {
	if len(l.fields) > 0 {
		kv = append(append([]any{}, l.fields...), kv...)
	}

	sk := registry.sinksFor(l.component)
	sk.file.Log(level, msg, kv...)
	if sk.console != nil {
		sk.console.Log(level, msg, kv...)
	}
}

// sinks are the charm loggers backing one component.
type sinks struct {
	file    *log.Logger // io.Discard before Init
	console *log.Logger
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	sinks       map[string]*sinks
	loggers     map[string]*Logger

	consoleEnabled bool
	consoleLevel   Level
	consoleOut     io.Writer
}

var registry = &state{
	components: make(map[string]Level),
	sinks:      make(map[string]*sinks),
	loggers:    make(map[string]*Logger),
	consoleOut: os.Stderr,
}

// Init initializes the logging system with the given configuration.
// Before Init is called, all loggers discard their output.
func Init(cfg Config) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsedLevel, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsedLevel
	}

	consoleEnabled := false
	var consoleLevel Level
	if cfg.ConsoleLevel != "" {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		consoleEnabled = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	if registry.writer != nil {
		if err := registry.writer.Close(); err != nil {
			_ = writer.Close()
			return fmt.Errorf("closing existing writer: %w", err)
		}
	}

	registry.writer = writer
	registry.level = level
	registry.components = components
	registry.consoleEnabled = consoleEnabled
	registry.consoleLevel = consoleLevel
	registry.sinks = make(map[string]*sinks)
	registry.initialized = true

	return nil
}

// Get returns the logger for the given component.
func Get(component string) *Logger {
	registry.mu.RLock()
	if logger, ok := registry.loggers[component]; ok {
		registry.mu.RUnlock()
		return logger
	}
	registry.mu.RUnlock()

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if logger, ok := registry.loggers[component]; ok {
		return logger
	}
	logger := &Logger{component: component}
	registry.loggers[component] = logger
	return logger
}

// sinksFor returns the cached sinks for component, building them on first
// use after each Init or Close.
func (s *state) sinksFor(component string) *sinks {
	s.mu.RLock()
	if sk, ok := s.sinks[component]; ok {
		s.mu.RUnlock()
		return sk
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sk, ok := s.sinks[component]; ok {
		return sk
	}
	sk := s.newSinks(component)
	s.sinks[component] = sk
	return sk
}

// newSinks must be called with s.mu held.
func (s *state) newSinks(component string) *sinks {
	level := s.level
	if compLevel, ok := s.components[component]; ok {
		level = compLevel
	}

	if !s.initialized {
		return &sinks{file: log.NewWithOptions(io.Discard, log.Options{
			Level:  level,
			Prefix: component,
		})}
	}

	sk := &sinks{file: log.NewWithOptions(s.writer, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})}

	if s.consoleEnabled {
		sk.console = log.NewWithOptions(s.consoleOut, log.Options{
			Level:           s.consoleLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return sk
}

// Close flushes and closes the log file. Loggers discard again afterwards.
func Close() error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if !registry.initialized {
		return nil
	}

	registry.initialized = false
	registry.sinks = make(map[string]*sinks)
	registry.components = make(map[string]Level)

	if registry.writer != nil {
		w := registry.writer
		registry.writer = nil
		if err := w.Close(); err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
	}

	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/driftsave/driftsave.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "driftsave", "driftsave.log")
}
