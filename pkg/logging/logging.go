// Package logging builds the logrus loggers handed to the decoder, batch runner and server.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// LevelFor maps the CLI debug level (0-9) to a logrus level
func LevelFor(debug int) log.Level {
	switch {
	case debug <= 0:
		return log.WarnLevel
	case debug == 1:
		return log.InfoLevel
	case debug == 2:
		return log.DebugLevel
	default:
		return log.TraceLevel
	}
}

// New returns a logger writing to w (stderr when nil) at the level for debug
func New(debug int, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(LevelFor(debug))
	l.SetFormatter(&log.TextFormatter{
		DisableTimestamp: debug < 2,
		FullTimestamp:    true,
	})
	return l
}

// NewJSON returns a logger with JSON output, used by the server
func NewJSON(debug int, w io.Writer) *log.Logger {
	l := New(debug, w)
	l.SetFormatter(&log.JSONFormatter{})
	return l
}
