// Package logging builds the zap logger shared by the LaborSync binaries.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination.
type Config struct {
	Level       string // DEBUG, INFO, WARN, ERROR
	Format      string // json, text
	OutputPath  string // stdout, stderr or a file path
	Development bool
}

// New returns a logger and a function that flushes it and closes any file it opened.
func New(cfg Config) (*zap.Logger, func(), error) {
	sink, closeSink, err := buildWriteSyncer(cfg.OutputPath)
	if err != nil {
		return nil, nil, err
	}
	logger := NewWithSink(cfg, sink)
	return logger, func() {
		_ = logger.Sync()
		closeSink()
	}, nil
}

// NewWithSink builds a logger writing to sink.
func NewWithSink(cfg Config, sink zapcore.WriteSyncer) *zap.Logger {
	core := zapcore.NewCore(buildEncoder(cfg), sink, zap.NewAtomicLevelAt(parseZapLevel(cfg.Level)))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func buildEncoder(cfg Config) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if cfg.Development || strings.EqualFold(cfg.Format, "text") {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func buildWriteSyncer(path string) (zapcore.WriteSyncer, func(), error) {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), func() {}, nil
	case "stdout":
		return zapcore.Lock(os.Stdout), func() {}, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(file), func() { _ = file.Close() }, nil
}

func parseZapLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
