package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger configured with the provided level and
// optional log files. The first call initializes the logger; subsequent calls
// ignore their arguments and return the already initialized instance.
func Get(level string, files ...string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level, files...)
	})
	return globalLogger
}
