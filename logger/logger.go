// Package logger provides leveled, size-bounded file logging for the daemon.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents the logging level
type Level int32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of a level
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, defaulting to info for unknown values
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes timestamped lines to a file, trimming the file once it grows
// past MaxLines. The level is atomic so config reloads can adjust it without
// taking the write lock.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	level     atomic.Int32
	lineCount int
}

// Global logger instance (atomic for safe concurrent access)
var global atomic.Pointer[Logger]

// fallback covers logging before Open is called
var fallback = newLogger(os.Stderr, LevelInfo)

func newLogger(file *os.File, level Level) *Logger {
	lg := &Logger{file: file}
	lg.level.Store(int32(level))
	return lg
}

// Open creates a logger appending to path and installs it as the global logger
func Open(path string, level Level) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	lg := newLogger(file, level)
	lg.lineCount = countLines(file)
	global.Store(lg)
	return lg, nil
}

// SetLevel changes the minimum logged level
func (lg *Logger) SetLevel(level Level) {
	lg.level.Store(int32(level))
}

func (lg *Logger) enabled(level Level) bool {
	return level >= Level(lg.level.Load())
}

func (lg *Logger) printf(level Level, format string, v ...any) {
	if !lg.enabled(level) {
		return
	}
	line := fmt.Sprintf("%s [%s] %s\n",
		time.Now().Format("2006/01/02 15:04:05"), level, fmt.Sprintf(format, v...))

	lg.mu.Lock()
	defer lg.mu.Unlock()

	if _, err := lg.file.WriteString(line); err != nil {
		return
	}
	lg.lineCount += strings.Count(line, "\n")
	if lg.lineCount > MaxLines {
		lg.lineCount = trimFile(lg.file, MaxLines/2)
	}
}

// Debug logs a debug message
func (lg *Logger) Debug(format string, v ...any) { lg.printf(LevelDebug, format, v...) }

// Info logs an info message
func (lg *Logger) Info(format string, v ...any) { lg.printf(LevelInfo, format, v...) }

// Warn logs a warning message
func (lg *Logger) Warn(format string, v ...any) { lg.printf(LevelWarn, format, v...) }

// Error logs an error message
func (lg *Logger) Error(format string, v ...any) { lg.printf(LevelError, format, v...) }

// Close closes the underlying file
func (lg *Logger) Close() error {
	return lg.file.Close()
}

func active() *Logger {
	if lg := global.Load(); lg != nil {
		return lg
	}
	return fallback
}

// Package-level logging functions that use the global logger (or the stderr
// fallback before Open)
func Debug(format string, v ...any) { active().Debug(format, v...) }
func Info(format string, v ...any)  { active().Info(format, v...) }
func Warn(format string, v ...any)  { active().Warn(format, v...) }
func Error(format string, v ...any) { active().Error(format, v...) }

// SetLevel changes the global logger's minimum level
func SetLevel(level Level) { active().SetLevel(level) }

// noop is reused to avoid allocations when tracing is disabled
var noop = func() {}

// Trace returns a function that logs the operation duration when called.
// Usage: defer logger.Trace("generation.GetGenerator")()
func Trace(name string) func() {
	lg := global.Load()
	if lg == nil || !lg.enabled(LevelTrace) {
		return noop
	}
	start := time.Now()
	return func() {
		lg.printf(LevelTrace, "%s: %v", name, time.Since(start))
	}
}
