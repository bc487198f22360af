package logger

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/paybridge/paybridge/connector"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// SystemLog represents a structured system log entry
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	EnableConsole bool
	MinLevel      LogLevel
	Service       string
	Version       string
	Environment   string
}

// SystemLogger handles structured console logging. It satisfies the minimal
// logging surface the dispatch service needs.
type SystemLogger struct {
	enableConsole bool
	minLevel      LogLevel
	service       string
	version       string
	environment   string
}

var _ connector.Logger = (*SystemLogger)(nil)

// NewSystemLogger creates a new system logger
func NewSystemLogger(config SystemLoggerConfig) *SystemLogger {
	return &SystemLogger{
		enableConsole: config.EnableConsole,
		minLevel:      config.MinLevel,
		service:       config.Service,
		version:       config.Version,
		environment:   config.Environment,
	}
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, fields map[string]any) {
	sl.log(LevelDebug, message, fields)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, fields map[string]any) {
	sl.log(LevelInfo, message, fields)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, fields map[string]any) {
	sl.log(LevelWarn, message, fields)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, fields map[string]any) {
	sl.log(LevelError, message, fields)
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, fields map[string]any) {
	sl.log(LevelFatal, message, fields)
	os.Exit(1)
}

// log is the core logging function
func (sl *SystemLogger) log(level LogLevel, message string, fields map[string]any) {
	if !sl.shouldLog(level) {
		return
	}

	// Get caller information
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}

	function := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
		if idx := strings.LastIndex(function, "."); idx != -1 {
			function = function[idx+1:]
		}
	}

	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Component:   extractComponent(file),
		Function:    function,
		File:        file,
		Line:        line,
		Fields:      fields,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}

	if sl.enableConsole {
		logToConsole(entry)
	}
}

// shouldLog checks if the log level should be logged
func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	levelOrder := map[LogLevel]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
		LevelFatal: 4,
	}

	return levelOrder[level] >= levelOrder[sl.minLevel]
}

// extractComponent extracts component name from file path
// e.g., /path/to/paybridge/connector/adyen/adyen.go -> connector/adyen
func extractComponent(file string) string {
	parts := strings.Split(file, "/")

	for i, part := range parts {
		if part == "paybridge" && i+1 < len(parts) {
			if i+2 < len(parts) {
				return parts[i+1] + "/" + parts[i+2]
			}
			return parts[i+1]
		}
	}

	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}

	return "unknown"
}

// logToConsole logs to console with colored output
func logToConsole(entry SystemLog) {
	colors := map[LogLevel]string{
		LevelDebug: "\033[36m", // Cyan
		LevelInfo:  "\033[32m", // Green
		LevelWarn:  "\033[33m", // Yellow
		LevelError: "\033[31m", // Red
		LevelFatal: "\033[35m", // Magenta
	}

	reset := "\033[0m"

	timestamp := entry.Timestamp.Format("2006-01-02 15:04:05")
	color := colors[entry.Level]
	levelStr := strings.ToUpper(string(entry.Level))

	// Log format: [TIMESTAMP] [LEVEL] [COMPONENT] MESSAGE
	fmt.Printf("%s[%s] [%s] %s\n",
		timestamp,
		color+levelStr+reset,
		entry.Component,
		entry.Message,
	)

	// Print fields if any
	for key, value := range entry.Fields {
		fmt.Printf("  %s: %v\n", key, value)
	}
}
