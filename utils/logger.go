package utils

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log file names, created under the configured log directory.
const (
	logFileName      = "flashswap.log"
	errorLogFileName = "flashswap-error.log"
)

var (
	log  *zap.Logger
	once sync.Once
)

// InitLogger initializes the global logger. Log files land in dir; an empty
// dir keeps them in the working directory.
func InitLogger(debug bool, dir string) *zap.Logger {
	once.Do(func() {
		logger, err := newLogger(debug, dir)
		if err != nil {
			panic(err)
		}
		log = logger
	})

	return log
}

func newLogger(debug bool, dir string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	cfg.OutputPaths = []string{"stdout", filepath.Join(dir, logFileName)}
	cfg.ErrorOutputPaths = []string{"stderr", filepath.Join(dir, errorLogFileName)}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"

	return cfg.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(false, "")
	}
	return log
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
