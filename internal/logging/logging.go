// Package logging configures the process logger and the quiet logger used for periodic chatter.
package logging

import (
	"io"

	"github.com/futurehomeno/cliffhanger/bootstrap"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileSizeMB  = 5
	maxLogFileBackups = 2
	maxLogFileAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures the standard logger. When a file is provided, output goes to a rotated log file
// and the returned closer must be closed on shutdown.
func Setup(level, format, file string) io.Closer {
	bootstrap.InitializeLogger("", level, format)

	if file == "" {
		return nopCloser{}
	}

	sink := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxLogFileSizeMB,
		MaxBackups: maxLogFileBackups,
		MaxAge:     maxLogFileAgeDays,
		Compress:   true,
	}

	log.SetOutput(sink)

	return sink
}

// NewQuietLogger returns a logger sharing the output and formatting of the base logger.
// When suppress is set, only warnings and errors are emitted.
func NewQuietLogger(base *log.Logger, suppress bool) *log.Logger {
	l := log.New()
	l.SetOutput(base.Out)
	l.SetFormatter(base.Formatter)
	l.SetReportCaller(base.ReportCaller)
	l.SetLevel(base.GetLevel())

	if suppress && l.GetLevel() > log.WarnLevel {
		l.SetLevel(log.WarnLevel)
	}

	return l
}
