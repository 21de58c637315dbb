// Package zfflog provides the package-level structured logger injection
// point used by dedup, acquire, config and the CLI: a single logrus.FieldLogger
// swapped in by the CLI harness at startup, defaulting to logrus's standard
// logger so library code never needs a nil check before logging.
package zfflog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger logrus.FieldLogger = logrus.StandardLogger()
)

// SetLogger overrides the package-level logger. Call once during startup;
// safe to call concurrently with Logger/WithFields.
func SetLogger(l logrus.FieldLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Logger returns the current package-level logger.
func Logger() logrus.FieldLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithFields is a shorthand for Logger().WithFields(fields).
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger().WithFields(fields)
}
