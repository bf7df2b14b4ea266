// Package logging wraps logrus into the structured diagnostic sink used
// across the collector: one log line per ingest error and lifecycle event,
// never the flow records themselves (those go through internal/publish).
package logging

import (
	"os"

	"github.com/sirupsen/logrus"

	"netflow-collector/internal/config"
)

// Logger is a thin façade over *logrus.Logger. It exists so call sites take
// this package's type rather than importing logrus directly, keeping the
// formatter/level decision in one place.
type Logger struct {
	base *logrus.Logger
}

// New builds a Logger from a LoggingConfig. An unrecognized level falls
// back to info rather than failing startup.
func New(cfg config.LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.ConsoleOutput {
		l.SetOutput(os.Stdout)
	} else {
		l.SetOutput(os.Stderr)
	}

	return &Logger{base: l}
}

// WithFields returns an entry pre-populated with structured context, for
// call sites that want several related key/value pairs on one line.
func (l *Logger) WithFields(fields map[string]any) *logrus.Entry {
	return l.base.WithFields(logrus.Fields(fields))
}

func (l *Logger) Debugf(format string, args ...any) { l.base.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.base.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.base.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.base.Errorf(format, args...) }
