// Package logging configures structured logging for FieldSync.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// global logger instance
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. level is one of debug/info/warn/error,
// format is "json" or "text". Unknown values fall back to info/text.
func Init(out io.Writer, level, format string) {
	once.Do(func() {
		global = newLogger(out, level, format)
	})
}

// Get returns the global logger instance.
func Get() *logrus.Logger {
	if global == nil {
		Init(os.Stdout, "info", "text")
	}
	return global
}

// Component returns an entry scoped to a named component.
func Component(name string) *logrus.Entry {
	return Get().WithField("component", name)
}

func newLogger(out io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
