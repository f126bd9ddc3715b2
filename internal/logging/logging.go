package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar = build(zapcore.InfoLevel)

// InitFromEnv sets the log level based on LOG_LEVEL (debug|info|error).
func InitFromEnv() {
	level := zapcore.InfoLevel
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "error":
		level = zapcore.ErrorLevel
	case "debug":
		level = zapcore.DebugLevel
	}
	sugar = build(level)
}

func build(level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if strings.ToLower(os.Getenv("ENV")) == "local" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

func Debugf(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	sugar.Fatalf(format, args...)
}

// Sync flushes buffered entries; call on shutdown.
func Sync() {
	_ = sugar.Sync()
}
