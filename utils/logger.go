package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LoggerOptions controls the output of a Logger.
type LoggerOptions struct {
	Debug  bool
	JSON   bool
	Output io.Writer
}

// Logger provides leveled, printf-style logging throughout the application.
// It is backed by a logrus entry so derived loggers can carry fields.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a Logger writing human-readable lines to stdout.
func NewLogger() *Logger {
	return NewLoggerWithOptions(LoggerOptions{})
}

// NewLoggerWithOptions creates a Logger using the given options.
func NewLoggerWithOptions(opts LoggerOptions) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	}

	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	l.SetLevel(logrus.InfoLevel)
	if opts.Debug {
		l.SetLevel(logrus.DebugLevel)
	}

	return &Logger{entry: logrus.NewEntry(l)}
}

// WithField returns a derived Logger that attaches key=value to every line.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a derived Logger carrying all the given fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

// DebugEnabled reports whether debug lines are emitted.
func (l *Logger) DebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
