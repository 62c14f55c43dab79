package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the service logger. LOG_LEVEL (debug, info, warn, error) selects the
// level and LOG_FORMAT=console switches from JSON to human-readable output, which the
// ask command uses on a terminal. Every entry carries the service name.
func NewLogger(service string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = levelFromEnv(os.Getenv("LOG_LEVEL"))
	config.Encoding = encodingFromEnv(os.Getenv("LOG_FORMAT"))
	if config.Encoding == "console" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if service != "" {
		config.InitialFields = map[string]interface{}{"service": service}
	}
	return config.Build()
}

// levelFromEnv falls back to info for empty or unknown values.
func levelFromEnv(s string) zap.AtomicLevel {
	level, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || strings.TrimSpace(s) == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return level
}

func encodingFromEnv(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "console") {
		return "console"
	}
	return "json"
}
