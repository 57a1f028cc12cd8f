// Package logging provides the structured logger used across the collector.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelOrder = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Logger writes leveled entries with attached fields. Derived loggers
// share the output writer and its lock.
type Logger struct {
	level  LogLevel
	format LogFormat
	out    *syncWriter
	fields map[string]interface{}
	exit   func(int)
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// NewLogger creates a logger writing to stdout
func NewLogger(level LogLevel, format LogFormat) *Logger {
	return New(level, format, os.Stdout)
}

// New creates a logger writing to w
func New(level LogLevel, format LogFormat, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: format,
		out:    &syncWriter{w: w},
		fields: map[string]interface{}{},
		exit:   os.Exit,
	}
}

func (l *Logger) derive(extra map[string]interface{}) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	return &Logger{level: l.level, format: l.format, out: l.out, fields: fields, exit: l.exit}
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.derive(map[string]interface{}{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(fields)
}

// WithError adds an error to the logger context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithRun tags every entry with the export run ID
func (l *Logger) WithRun(runID string) *Logger {
	return l.WithField("run_id", runID)
}

func (l *Logger) Debug(message string) { l.log(LevelDebug, message) }
func (l *Logger) Info(message string)  { l.log(LevelInfo, message) }
func (l *Logger) Warn(message string)  { l.log(LevelWarn, message) }
func (l *Logger) Error(message string) { l.log(LevelError, message) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}

// Fatal logs a fatal message and exits with status 1
func (l *Logger) Fatal(message string) {
	l.log(LevelFatal, message)
	l.exit(1)
}

// Fatalf logs a formatted fatal message and exits with status 1
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(LevelFatal, fmt.Sprintf(format, args...))
	l.exit(1)
}

func (l *Logger) log(level LogLevel, message string) {
	if levelOrder[level] < levelOrder[l.level] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Fields:    l.fields,
	}

	// Caller is only worth the lookup for errors
	if level == LevelError || level == LevelFatal {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	var line string
	if l.format == FormatJSON {
		b, _ := json.Marshal(entry)
		line = string(b)
	} else {
		line = formatText(entry)
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	fmt.Fprintln(l.out.w, line)
}

func formatText(entry LogEntry) string {
	line := fmt.Sprintf("[%s] %s: %s", entry.Timestamp, entry.Level, entry.Message)
	if len(entry.Fields) > 0 {
		b, _ := json.Marshal(entry.Fields)
		line += " fields=" + string(b)
	}
	if entry.Caller != "" {
		line += " caller=" + entry.Caller
	}
	return line
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(level LogLevel, format LogFormat) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = NewLogger(level, format)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(LevelInfo, FormatJSON)
	}
	return globalLogger
}

type loggerKey struct{}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves a logger from the context, falling back to the global logger
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return GetGlobalLogger()
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		log.Printf("Unknown log level '%s', defaulting to 'info'", level)
		return LevelInfo
	}
}

// ParseLogFormat parses a string into a LogFormat
func ParseLogFormat(format string) LogFormat {
	switch format {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		log.Printf("Unknown log format '%s', defaulting to 'json'", format)
		return FormatJSON
	}
}
