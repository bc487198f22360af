package logger

import (
	"sync"

	"github.com/paybridge/paybridge/infra/config"
)

var (
	globalLogger *SystemLogger
	once         sync.Once
)

// InitGlobalLogger initializes the global system logger
func InitGlobalLogger() {
	once.Do(func() {
		cfg := SystemLoggerConfig{
			EnableConsole: true,
			MinLevel:      LevelInfo,
			Service:       "paybridge",
			Version:       "1.0.0",
			Environment:   config.GetEnv("ENVIRONMENT", "development"),
		}

		if cfg.Environment == "development" {
			cfg.MinLevel = LevelDebug
		}

		globalLogger = NewSystemLogger(cfg)
	})
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *SystemLogger {
	if globalLogger == nil {
		globalLogger = NewSystemLogger(SystemLoggerConfig{
			EnableConsole: true,
			MinLevel:      LevelInfo,
			Service:       "paybridge",
			Version:       "1.0.0",
			Environment:   "development",
		})
	}
	return globalLogger
}

// Convenience functions for global logging

// Debug logs a debug message using the global logger
func Debug(message string, fields map[string]any) {
	GetGlobalLogger().Debug(message, fields)
}

// Info logs an info message using the global logger
func Info(message string, fields map[string]any) {
	GetGlobalLogger().Info(message, fields)
}

// Warn logs a warning message using the global logger
func Warn(message string, fields map[string]any) {
	GetGlobalLogger().Warn(message, fields)
}

// Error logs an error message using the global logger
func Error(message string, fields map[string]any) {
	GetGlobalLogger().Error(message, fields)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, fields map[string]any) {
	GetGlobalLogger().Fatal(message, fields)
}
