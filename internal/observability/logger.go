// Logging
//
// Builds the process-wide zap logger from config.LoggerConfig. Console output
// goes to stderr; an optional rotating JSON file is added through lumberjack.

package observability

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/user/webdriver-bridge/internal/config"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

// InitializeLogger sets up the global logger. Later calls are no-ops.
func InitializeLogger(cfg config.LoggerConfig) {
	once.Do(func() {
		initializeLogger(cfg, zapcore.Lock(os.Stderr))
	})
}

// initializeLogger builds and stores the logger writing console output to w.
func initializeLogger(cfg config.LoggerConfig, w zapcore.WriteSyncer) {
	globalLogger.Store(New(cfg, w))
}

// New builds a logger from cfg writing console output to w.
func New(cfg config.LoggerConfig, w zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	cores := []zapcore.Core{zapcore.NewCore(getEncoder(cfg.Format), w, level)}

	if cfg.LogFile != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(getEncoder("json"), fileWriter, level))
	}

	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		options = append(options, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewTee(cores...), options...)
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger
}

func getEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// GetLogger returns the global logger, or a development logger if
// InitializeLogger has not run yet.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l.Named("fallback")
}

// Sync flushes any buffered log entries.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := syncLogger(logger); err != nil {
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
}

// syncLogger flushes logger. Terminals and pipes cannot be fsynced; those
// errors are dropped.
func syncLogger(logger *zap.Logger) error {
	err := logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
