package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production gets JSON output, everything else the
// console encoder.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "storefront"), zap.String("env", env)), nil
}

// parseLevel falls back to info for anything zap does not recognise.
func parseLevel(lvl string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.TrimSpace(lvl))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
