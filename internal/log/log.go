// Package log provides the structured logger shared by every SDK component.
// Adapted from the teacher's pkg/util logging helpers onto the Astarte
// domain: fields are keyed by interface/path instead of device/operation.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the package-level logger instance used throughout the SDK.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel sets the minimum logging level.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to JSON-formatted logs, useful when running on a
// device whose supervisor collects structured logs.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithInterface returns an entry scoped to an interface name.
func WithInterface(name string) *logrus.Entry {
	return Logger.WithField("interface", name)
}

// WithPath returns an entry scoped to an interface+path pair.
func WithPath(interfaceName, path string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{"interface": interfaceName, "path": path})
}

// WithFields is a passthrough for callers that need custom field sets.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}
