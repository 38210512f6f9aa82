package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "commons-api"

// NewLogger returns a zap logger configured for structured production logging.
// An empty level selects info; "warning" is accepted as an alias of warn.
func NewLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": serviceName}

	return cfg.Build()
}

func parseLevel(level string) (zap.AtomicLevel, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "":
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	case "warning":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel), nil
	}
	parsed, err := zapcore.ParseLevel(normalized)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zap.NewAtomicLevelAt(parsed), nil
}
