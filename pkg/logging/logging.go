// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the configured application logger. Components receive it (or an
// entry derived from it) as a logrus.FieldLogger.
var Log = logrus.StandardLogger()

// Init sets level, formatter and output. An unknown level falls back to info
// and is reported once the logger is usable.
func Init(level string, json bool) *logrus.Logger {
	return InitWithOutput(level, json, os.Stderr)
}

// InitWithOutput is Init writing to w.
func InitWithOutput(level string, json bool, w io.Writer) *logrus.Logger {
	Log.SetOutput(w)

	if json {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		Log.SetLevel(logrus.InfoLevel)
		Log.WithField("level", level).Warn("Unknown log level, using info")
		return Log
	}
	Log.SetLevel(lvl)
	return Log
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
