// Package tcplog provides the structured logger used across the engine: a
// single package-level *logrus.Logger rather than a context-threaded one,
// since the core has no per-request context to hang a logger off of.
package tcplog

import "github.com/sirupsen/logrus"

var logger = logrus.New()

// Logger returns the package-level logger.
func Logger() *logrus.Logger {
	return logger
}

// SetLevel adjusts the minimum level the logger emits, e.g. for a CLI's
// -v flag.
func SetLevel(level logrus.Level) {
	logger.SetLevel(level)
}
