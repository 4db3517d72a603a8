package utils

import (
	"log"
	"strings"

	"localcity/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Global logger instance
var (
	Logger   *zap.Logger
	logLevel = zap.NewAtomicLevel()
)

// InitializeLogger sets up the logging configuration
func InitializeLogger() {
	var cfg zap.Config

	if config.IsProduction() {
		cfg = zap.NewProductionConfig()
		logLevel.SetLevel(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		logLevel.SetLevel(zap.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if config.AppConfig.LogLevel != "" {
		SetLogLevel(config.AppConfig.LogLevel)
	}
	cfg.Level = logLevel

	var err error
	Logger, err = cfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(Logger)
}

// SetLogLevel changes the level of the running logger. Unknown names are ignored.
func SetLogLevel(level string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return
	}
	logLevel.SetLevel(l)
}

// GetLogger retrieves the global logger
func GetLogger() *zap.Logger {
	if Logger == nil {
		InitializeLogger()
	}
	return Logger
}
