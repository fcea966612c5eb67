// Package fslog is a small package-level logging facade over logrus,
// mirroring the teacher's fs/log convention of leveled free functions
// (Debugf/Infof/Errorf) rather than every package wiring up its own logger.
package fslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	std.SetLevel(logrus.InfoLevel)
}

// SetLevel adjusts the global log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Errorf(nil, "unknown log level %q, keeping %v", level, std.GetLevel())
		return
	}
	std.SetLevel(lvl)
}

func fields(subject interface{}) logrus.Fields {
	if subject == nil {
		return logrus.Fields{}
	}
	return logrus.Fields{"subject": subject}
}

// Debugf logs at debug level, tagging the log line with subject (often a
// path or a component name); pass nil when there is none.
func Debugf(subject interface{}, format string, args ...interface{}) {
	std.WithFields(fields(subject)).Debugf(format, args...)
}

// Infof logs at info level.
func Infof(subject interface{}, format string, args ...interface{}) {
	std.WithFields(fields(subject)).Infof(format, args...)
}

// Errorf logs at error level. Cancellation is never logged through this
// path — callers must check fserrors.Is(err, fserrors.Cancelled) first.
func Errorf(subject interface{}, format string, args ...interface{}) {
	std.WithFields(fields(subject)).Errorf(format, args...)
}

// Warnf logs at warn level.
func Warnf(subject interface{}, format string, args ...interface{}) {
	std.WithFields(fields(subject)).Warnf(format, args...)
}
