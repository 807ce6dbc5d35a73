// Package logger constructs the zap.Logger used throughout the server and
// client binaries.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig selects the logger's verbosity and encoding.
type LoggerConfig struct {
	// Debug enables development-style logging: human-readable console
	// output, debug level enabled, stack traces on warnings.
	Debug bool
}

// NewLogger builds a zap.Logger. In debug mode it uses
// zap.NewDevelopmentConfig (console encoder, capitalized levels); otherwise it
// uses a production JSON configuration suited to log aggregation.
func NewLogger(cfg *LoggerConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &LoggerConfig{}
	}

	var zapCfg zap.Config
	if cfg.Debug {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: failed to build zap logger: %w", err)
	}
	return l, nil
}
