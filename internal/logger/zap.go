package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.DebugLevel

// logFileMode is the permission used when the log file has to be created.
const logFileMode = 0o644

// toZapLevel converts a textual level to zapcore.Level using known level constants.
func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// newConsoleCore builds a zapcore.Core with a console encoder targeting stdout.
func newConsoleCore(level zapcore.Level) zapcore.Core {
	cfg := encoderConfig()
	cfg.TimeKey = ""

	encoder := zapcore.NewConsoleEncoder(cfg)
	ws := zapcore.Lock(os.Stdout) // thread-safe writer
	return zapcore.NewCore(encoder, zapcore.AddSync(ws), zap.NewAtomicLevelAt(level))
}

// newFileCore appends timestamped console-encoded lines to path.
func newFileCore(path string, level zapcore.Level) (zapcore.Core, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, err
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	return zapcore.NewCore(encoder, zapcore.Lock(f), zap.NewAtomicLevelAt(level)), nil
}

// newZapLogger constructs a sugared zap logger with the provided level string.
// Every file in files receives the same entries as stdout; files that cannot be
// opened are reported on the console logger and skipped.
func newZapLogger(levelStr string, files ...string) *Logger {
	level := toZapLevel(levelStr)
	cores := []zapcore.Core{newConsoleCore(level)}

	var failed map[string]error
	for _, path := range files {
		if path == "" {
			continue
		}
		core, err := newFileCore(path, level)
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[path] = err
			continue
		}
		cores = append(cores, core)
	}

	l := &Logger{SugaredLogger: zap.New(zapcore.NewTee(cores...)).Sugar()}
	for path, err := range failed {
		l.Warnw("log file disabled", "path", path, "err", err)
	}
	return l
}

// NewNop returns a logger that discards everything. Intended for tests.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
