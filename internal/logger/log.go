// Package logger provides the application's leveled file logger with
// line-count based rotation. Logging must never take the indicator down,
// so every failure here degrades to a message on stderr.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const timeFormat = "02-01-2006 15:04:05"

// Logger writes timestamped, leveled messages to a single log file and
// rotates it away once it grows past maxLines lines.
type Logger struct {
	mu           sync.Mutex
	filePath     string
	maxLines     int
	currentLines int
	enabled      bool
	debug        bool
}

// New creates a Logger writing to filePath. maxLines bounds the file
// before rotation, enabled switches file logging as a whole and debug
// additionally enables Debug level output.
func New(filePath string, maxLines int, enabled, debug bool) *Logger {
	return &Logger{
		filePath: filePath,
		maxLines: maxLines,
		enabled:  enabled,
		debug:    debug,
	}
}

// Path returns the log file path.
func (l *Logger) Path() string { return l.filePath }

// SetEnabled switches file logging on or off at runtime.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// SetDebug switches Debug level output at runtime.
func (l *Logger) SetDebug(debug bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = debug
}

// Info records an informational message.
func (l *Logger) Info(message string) { l.write("INFO", message, false) }

// Error records an error message.
func (l *Logger) Error(message string) { l.write("ERROR", message, false) }

// Check records a threshold-check event. Kept as its own level so the
// notification decisions stand out when reading the log.
func (l *Logger) Check(message string) { l.write("CHECK", message, false) }

// Debug records a debug message; dropped unless debug output is enabled.
func (l *Logger) Debug(message string) { l.write("DEBUG", message, true) }

// Fatal records the message and exits the process.
func (l *Logger) Fatal(message string) {
	l.write("FATAL", message, false)
	log.Fatal(message)
}

// Line writes a separator line, useful around multi-line reports.
func (l *Logger) Line() { l.write("INFO", strings.Repeat("-", 48), false) }

func (l *Logger) write(level, message string, debugOnly bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || (debugOnly && !l.debug) {
		return
	}

	if l.currentLines >= l.maxLines {
		if err := l.rotate(); err != nil {
			log.Printf("log rotation failed: %v", err)
		}
	}

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("cannot open log file %s: %v", l.filePath, err)
		return
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] %s: %s\n", time.Now().Format(timeFormat), level, strings.TrimSpace(message))
	if _, err := f.WriteString(entry); err != nil {
		log.Printf("cannot write to log file: %v", err)
		return
	}
	l.currentLines++
}

// rotate renames the current file aside with a timestamp suffix and
// resets the line counter; the next write starts a fresh file.
func (l *Logger) rotate() error {
	if _, err := os.Stat(l.filePath); os.IsNotExist(err) {
		l.currentLines = 0
		return nil
	}

	stamp := time.Now().Format("2006-01-02T15_04_05")
	rotated := fmt.Sprintf("%s_%s.log", strings.TrimSuffix(l.filePath, ".log"), stamp)
	if err := os.Rename(l.filePath, rotated); err != nil {
		return err
	}
	l.currentLines = 0
	return nil
}
