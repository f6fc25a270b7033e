package internal

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// stdout carries the protocol stream, so everything goes to stderr.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "claude-memory",
	Level:           log.InfoLevel,
})

func (l LogLevel) charm() log.Level {
	switch l {
	case LogLevelError:
		return log.ErrorLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelDebug:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// ParseLogLevel maps a config string onto a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	logger.SetLevel(level.charm())
}

// GetLogLevel returns the current global log level
func GetLogLevel() LogLevel {
	switch logger.GetLevel() {
	case log.ErrorLevel, log.FatalLevel:
		return LogLevelError
	case log.WarnLevel:
		return LogLevelWarn
	case log.DebugLevel:
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LogLevelDebug)
	} else {
		SetLogLevel(LogLevelInfo)
	}
}

// SetLogOutput redirects log output, mainly for tests.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Logger returns the process logger for structured key/value logging.
func Logger() *log.Logger {
	return logger
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// LogWarn logs a warning message
func LogWarn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// LogInfo logs an info message
func LogInfo(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// LogDebug logs a debug message
func LogDebug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}
