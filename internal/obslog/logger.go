// Package obslog provides the structured logger every collective state
// machine reports through. It mirrors the teacher's types.Logger contract
// (Debugf/Infof/Warnf/Errorf) but builds the concrete default on logrus
// instead of a hand-rolled stdlib wrapper, since logrus is the structured
// logging library the example pack actually ships.
package obslog

import (
	"github.com/sirupsen/logrus"
)

// Logger is the contract every collective depends on. A caller can swap in
// any implementation via collective.WithLogger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

// logrusLogger is the default Logger, backed by a *logrus.Entry so fields
// attached via WithField propagate to every subsequent call.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewDefault builds the default logger, text-formatted to stderr at info
// level, matching go-mcast's NewDefaultLogger default verbosity.
func NewDefault() Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// NewFromLogger wraps a caller-configured *logrus.Logger, for embedding
// applications that already standardized on their own logrus setup.
func NewFromLogger(l *logrus.Logger) Logger {
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// Noop discards everything, useful for tests that don't want spin-diagnostic
// chatter on stderr.
type Noop struct{}

func (Noop) Debugf(string, ...interface{}) {}
func (Noop) Infof(string, ...interface{})  {}
func (Noop) Warnf(string, ...interface{})  {}
func (Noop) Errorf(string, ...interface{}) {}
func (n Noop) WithField(string, interface{}) Logger { return n }
