package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"labelstation/internal/config"
)

// Level names a log stream; each level has its own file in the log directory.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Levels lists every log stream.
var Levels = []Level{LevelInfo, LevelWarning, LevelError}

// FileName returns the file the level is written to.
func (l Level) FileName() string {
	return string(l) + ".log"
}

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	loggers map[Level]*log.Logger
	files   []*os.File
	logDir  string
	mu      sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		loggers: make(map[Level]*log.Logger, len(Levels)),
		logDir:  config.LogDirectory,
	}

	logger.setupLoggers()
	return logger
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers() {
	prefixes := map[Level]string{
		LevelInfo:    "ℹ️  INFO    ",
		LevelWarning: "⚠️  WARNING ",
		LevelError:   "❌ ERROR   ",
	}

	for _, level := range Levels {
		file := l.openLogFile(filepath.Join(l.logDir, level.FileName()))
		l.files = append(l.files, file)

		var console io.Writer = os.Stdout
		if level == LevelError {
			console = os.Stderr
		}
		l.loggers[level] = log.New(io.MultiWriter(console, file), prefixes[level], log.Ldate|log.Ltime|log.Lshortfile)
	}
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	return file
}

func (l *Logger) output(level Level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// depth 3 reports the caller of Info/Warning/Error.
	l.loggers[level].Output(3, fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.output(LevelInfo, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.output(LevelWarning, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.output(LevelError, format, v...)
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the log file of the given level.
func (l *Logger) CleanLogs(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Truncate(filepath.Join(l.logDir, level.FileName()), 0); err != nil {
		return fmt.Errorf("truncate %s: %w", level.FileName(), err)
	}
	return nil
}

// Close closes the underlying log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
