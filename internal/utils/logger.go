package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewApplicationLogger constructs the console logger for command line runs.
// Output goes to stderr, keeping stdout clean for digests written with -o -.
func NewApplicationLogger() (*zap.Logger, error) {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Encoding = "console"
	loggerConfig.OutputPaths = []string{"stderr"}
	loggerConfig.DisableCaller = true
	loggerConfig.DisableStacktrace = true
	loggerConfig.EncoderConfig = zapcore.EncoderConfig{
		MessageKey:  "message",
		EncodeLevel: zapcore.CapitalLevelEncoder,
	}
	return loggerConfig.Build()
}

// NewServerLogger constructs the structured JSON logger used by the HTTP
// service, where log lines feed collectors rather than people.
func NewServerLogger() (*zap.Logger, error) {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.DisableStacktrace = true
	return loggerConfig.Build()
}
