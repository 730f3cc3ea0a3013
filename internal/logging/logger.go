// Package logging provides the levelled debug logger, layer tables, session
// tips and the end-of-session report.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Level is the severity of a log message.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelPrefixes = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO ",
	LevelWarn:  "WARN ",
	LevelError: "ERROR",
}

var levelColors = map[Level]string{
	LevelDebug: "\033[36m",
	LevelInfo:  "\033[32m",
	LevelWarn:  "\033[33m",
	LevelError: "\033[31m",
}

// ParseLevel maps a level name to a Level. Unknown names yield info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes levelled, caller-annotated lines. It is safe for concurrent
// use.
type Logger struct {
	level     atomic.Int32
	logger    *log.Logger
	closer    io.Closer
	useColors bool
}

// NewLogger writes to w at the given level.
func NewLogger(level string, w io.Writer) *Logger {
	l := &Logger{logger: log.New(w, "", 0)}
	l.level.Store(int32(ParseLevel(level)))
	return l
}

// NewConsoleLogger writes to stderr, coloured when stderr is a terminal.
func NewConsoleLogger(level string) *Logger {
	l := NewLogger(level, os.Stderr)
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		l.useColors = true
	}
	return l
}

// NewFileLogger truncates path and logs into it.
func NewFileLogger(level, path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l := NewLogger(level, f)
	l.closer = f
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l := NewLogger("error", io.Discard)
	l.level.Store(int32(LevelError + 1))
	return l
}

// SetLevel changes the minimum level logged.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Level is the minimum level logged.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) logf(level Level, format string, v ...any) {
	if int32(level) < l.level.Load() {
		return
	}
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	}
	prefix := fmt.Sprintf("%s [%s] %s:%d:", time.Now().Format("2006/01/02 15:04:05.000"), levelPrefixes[level], filepath.Base(file), line)
	if l.useColors {
		prefix = levelColors[level] + prefix + "\033[0m"
	}
	l.logger.Println(prefix, fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }
