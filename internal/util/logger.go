package util

import (
	"github.com/pion/logging"
)

// LoggerFactory implements pion's logging.LoggerFactory on top of the pterm
// helpers, so pion internals and our own components share one output.
type LoggerFactory struct{}

// NewLoggerFactory returns a factory whose loggers prefix messages with their scope.
func NewLoggerFactory() logging.LoggerFactory {
	return LoggerFactory{}
}

// NewLogger returns a leveled logger for the given scope.
func (LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &scopedLogger{prefix: "[" + scope + "] "}
}

type scopedLogger struct {
	prefix string
}

func (l *scopedLogger) Trace(msg string) { LogTrace("%s%s", l.prefix, msg) }
func (l *scopedLogger) Debug(msg string) { LogDebug("%s%s", l.prefix, msg) }
func (l *scopedLogger) Info(msg string)  { LogInfo("%s%s", l.prefix, msg) }
func (l *scopedLogger) Warn(msg string)  { LogWarning("%s%s", l.prefix, msg) }
func (l *scopedLogger) Error(msg string) { LogError("%s%s", l.prefix, msg) }

func (l *scopedLogger) Tracef(format string, args ...interface{}) {
	LogTrace(l.prefix+format, args...)
}

func (l *scopedLogger) Debugf(format string, args ...interface{}) {
	LogDebug(l.prefix+format, args...)
}

func (l *scopedLogger) Infof(format string, args ...interface{}) {
	LogInfo(l.prefix+format, args...)
}

func (l *scopedLogger) Warnf(format string, args ...interface{}) {
	LogWarning(l.prefix+format, args...)
}

func (l *scopedLogger) Errorf(format string, args ...interface{}) {
	LogError(l.prefix+format, args...)
}
