// Package logger is the structured logger used across cv-editor: leveled
// key=value lines written to a size-rotated file and optionally stderr.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a config value such as "debug" or "WARN" to a Level.
// Unknown or empty values yield LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Field is one key=value pair of a log line.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Duration is rendered in whole milliseconds, e.g. elapsed=1500ms.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: fmt.Sprintf("%dms", value.Milliseconds())}
}

// Page logs a zero-based page index as the 1-based page number users see.
func Page(pageIndex int) Field {
	return Field{Key: "page", Value: pageIndex + 1}
}

// Err 错误字段
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// formatValue quotes values that would otherwise break key=value parsing,
// such as run texts with spaces.
func formatValue(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	SetLevel(level Level)
	Close() error
}

// Config holds the configuration for the logger
type Config struct {
	LogFilePath string
	// MaxFileSize is the size in bytes after which the file is rotated.
	MaxFileSize int64
	// MaxBackups is how many rotated files (.1 .. .N) are kept.
	MaxBackups int
	Level      Level
	// EnableConsole mirrors lines to stderr; stdout is left to command output.
	EnableConsole bool
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		LogFilePath: "cv-editor.log",
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  5,
		Level:       LevelInfo,
	}
}

// rotatingFile is an append-only log file that is renamed to .1 (shifting
// older backups) once it would grow past maxSize.
type rotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

func openRotatingFile(path string, maxSize int64, maxBackups int) (*rotatingFile, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	rf := &rotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *rotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rf.file, rf.size = f, info.Size()
	return nil
}

func (rf *rotatingFile) Write(p []byte) (int, error) {
	if rf.maxSize > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

func (rf *rotatingFile) backup(i int) string {
	return rf.path + "." + strconv.Itoa(i)
}

func (rf *rotatingFile) rotate() error {
	rf.file.Close()
	if rf.maxBackups > 0 {
		os.Remove(rf.backup(rf.maxBackups))
		for i := rf.maxBackups - 1; i >= 1; i-- {
			os.Rename(rf.backup(i), rf.backup(i+1))
		}
		os.Rename(rf.path, rf.backup(1))
	} else {
		os.Remove(rf.path)
	}
	return rf.open()
}

func (rf *rotatingFile) Close() error {
	return rf.file.Close()
}

// DefaultLogger writes formatted lines to the rotating file and, when
// enabled, to stderr.
type DefaultLogger struct {
	mu      sync.Mutex
	level   Level
	file    *rotatingFile
	console io.Writer
	now     func() time.Time
}

// NewDefaultLogger creates a DefaultLogger; a nil config means DefaultConfig.
func NewDefaultLogger(config *Config) (*DefaultLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	file, err := openRotatingFile(config.LogFilePath, config.MaxFileSize, config.MaxBackups)
	if err != nil {
		return nil, err
	}
	l := &DefaultLogger{level: config.Level, file: file, now: time.Now}
	if config.EnableConsole {
		l.console = os.Stderr
	}
	return l, nil
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, nil, fields) }

func (l *DefaultLogger) Info(msg string, fields ...Field) { l.log(LevelInfo, msg, nil, fields) }

func (l *DefaultLogger) Warn(msg string, fields ...Field) { l.log(LevelWarn, msg, nil, fields) }

// Error logs at error level and appends the caller's stack.
func (l *DefaultLogger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, err, fields)
}

func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *DefaultLogger) log(level Level, msg string, err error, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	var sb strings.Builder
	sb.WriteString(l.now().Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)
	if err != nil {
		sb.WriteString(" error=")
		sb.WriteString(strconv.Quote(err.Error()))
	}
	for _, f := range fields {
		sb.WriteByte(' ')
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(formatValue(f.Value))
	}
	sb.WriteByte('\n')
	if level == LevelError {
		writeStack(&sb)
	}

	line := []byte(sb.String())
	l.file.Write(line)
	if l.console != nil {
		l.console.Write(line)
	}
}

// maxStackFrames bounds the trace appended to error lines.
const maxStackFrames = 12

// writeStack appends the caller frames outside this package and the runtime.
func writeStack(sb *strings.Builder) {
	pcs := make([]uintptr, 32)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	sb.WriteString("Stack trace:\n")
	written := 0
	for {
		frame, more := frames.Next()
		fn := frame.Function
		if !strings.Contains(fn, "internal/logger.") && !strings.HasPrefix(fn, "runtime.") && !strings.HasPrefix(fn, "testing.") {
			if written == maxStackFrames {
				sb.WriteString("  ... (truncated)\n")
				return
			}
			fmt.Fprintf(sb, "  %s:%d %s\n", frame.File, frame.Line, fn)
			written++
		}
		if !more {
			return
		}
	}
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = noopLogger{}
)

// Init replaces the global logger with a file logger built from config.
func Init(config *Config) error {
	l, err := NewDefaultLogger(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	old := globalLogger
	globalLogger = l
	globalMu.Unlock()
	return old.Close()
}

// GetLogger returns the global logger; before Init it discards everything.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetGlobalLogger installs l; nil restores the discarding logger.
func SetGlobalLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Close closes the global logger and falls back to discarding.
func Close() error {
	globalMu.Lock()
	old := globalLogger
	globalLogger = noopLogger{}
	globalMu.Unlock()
	return old.Close()
}

func Debug(msg string, fields ...Field) { GetLogger().Debug(msg, fields...) }

func Info(msg string, fields ...Field) { GetLogger().Info(msg, fields...) }

func Warn(msg string, fields ...Field) { GetLogger().Warn(msg, fields...) }

func Error(msg string, err error, fields ...Field) { GetLogger().Error(msg, err, fields...) }

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field)        {}
func (noopLogger) Info(string, ...Field)         {}
func (noopLogger) Warn(string, ...Field)         {}
func (noopLogger) Error(string, error, ...Field) {}
func (noopLogger) SetLevel(Level)                {}
func (noopLogger) Close() error                  { return nil }
