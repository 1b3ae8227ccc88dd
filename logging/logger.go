package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
	current   Config
)

// Configure installs the logging configuration. Loggers already handed out
// are reconfigured in place so package-level loggers pick up the change.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	current = cfg
	for component, entry := range loggers {
		applyConfig(entry.Logger, component, cfg)
	}
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	applyConfig(logger, component, current)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

func applyConfig(logger *logrus.Logger, component string, cfg Config) {
	// Configure Level
	levelStr := "info"
	if env := os.Getenv("GCPD_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetReportCaller(os.Getenv("GCPD_LOG_CALLER") == "true" || cfg.ReportCaller)

	interactive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	switch cfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		color := interactive && termenv.NewOutput(os.Stderr).ColorProfile() != termenv.Ascii
		logger.SetFormatter(&TextFormatter{Config: cfg.Format, Color: color})
	}

	var writers []io.Writer

	fileConfigured := cfg.File.Enabled && cfg.File.Path != ""
	if fileConfigured {
		path := expandPath(cfg.File.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			logger.Warnf("Failed to create log directory for %s: %v", path, err)
		} else if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			logger.Warnf("Failed to open log file %s: %v", path, err)
		} else {
			writers = append(writers, file)
		}
	}

	switch cfg.Format.StructuredToStderr {
	case "never":
	case "auto":
		// Interactive sessions with a file sink keep the terminal quiet.
		if !interactive || !fileConfigured || level >= logrus.DebugLevel {
			writers = append(writers, os.Stderr)
		}
	default:
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
