package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLevel maps the configured level name to a zap level. Python-style
// names (WARNING, CRITICAL) are accepted alongside zap's own.
func (l LoggingConfig) ZapLevel() (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(l.Level)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO", "":
		return zapcore.InfoLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", l.Level)
	}
}

// NewLogger builds the process logger: the zap production preset for json,
// the development encoder for console/text.
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := l.ZapLevel()
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch strings.ToLower(l.Format) {
	case "console", "text":
		zc = zap.NewDevelopmentConfig()
	default:
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
