// Package log provides structured logging for the long-running server
// components (indexer, updater, coordinator, lifecycle) that need field
// correlation across concurrent goroutines (url, version, run_state,
// request_id).
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Entry wraps a logrus.Entry, narrowing the surface to the calls this
// repository actually makes (WithField, the level methods) rather than
// exposing logrus's full API everywhere.
type Entry struct {
	e *logrus.Entry
}

// New creates a root Entry writing structured (JSON) logs to stderr, so
// stdout remains free for the JSON-RPC transport.
func New() *Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Entry{e: logrus.NewEntry(logger)}
}

// WithField returns a new Entry with key=value attached to every
// subsequent log call.
func (l *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{e: l.e.WithField(key, value)}
}

func (l *Entry) Debug(msg string) { l.e.Debug(msg) }
func (l *Entry) Info(msg string)  { l.e.Info(msg) }
func (l *Entry) Warn(msg string)  { l.e.Warn(msg) }
func (l *Entry) Error(msg string) { l.e.Error(msg) }

// SetLevel adjusts the verbosity of the underlying logger.
func (l *Entry) SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}

	l.e.Logger.SetLevel(parsed)
}
