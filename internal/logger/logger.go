package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger instance.
var Logger = logrus.New()

// Init configures the logger with the given level name ("debug", "info", ...).
// Unknown levels fall back to info.
func Init(level string) {
	Logger = logrus.New()
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
