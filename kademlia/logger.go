package kademlia

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Global process-wide logging sink, lazily initialized on first use —
// everything else in this package is owned by the node and passed
// explicitly, but the logger is the one piece of intentional global state.
var (
	loggerOnce sync.Once
	logger     *logrus.Logger
)

// log returns the lazily-initialized package logger: INFO/WARN/ERROR
// levels, RFC3339 (ISO-8601) UTC timestamps, and caller file:line on
// every entry.
func log() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetReportCaller(true)
		logger.SetFormatter(utcFormatter{&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		}})
		logger.SetLevel(logrus.InfoLevel)
	})
	return logger
}

// utcFormatter converts each entry's timestamp to UTC before handing it to
// the wrapped formatter.
type utcFormatter struct {
	logrus.Formatter
}

func (f utcFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return f.Formatter.Format(e)
}

// SetLogLevel adjusts the package logger's minimum level. INFO by default.
func SetLogLevel(level logrus.Level) {
	log().SetLevel(level)
}
