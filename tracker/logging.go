package tracker

import (
	"fmt"
	"log"
)

// Logger interface for structured logging from the reaper
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement the Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

func (t *Tracker) log() Logger {
	return t.logger
}
