// Package applog provides a small leveled logger on top of the standard
// library's log package, in the bracket-tagged style ("[INFO]", "[ERROR]",
// ...) already used throughout this module's HE and protocol code.
package applog

import (
	"log"
	"os"
	"strings"
)

// Level is a log severity, lowest to highest.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger writes bracket-tagged lines for a single component, gated at a
// minimum level.
type Logger struct {
	component string
	level     Level
	out       *log.Logger
}

// New creates a Logger for component, gated at the level named by levelStr.
// Unrecognized level strings default to "info".
func New(component, levelStr string) *Logger {
	return &Logger{
		component: component,
		level:     parseLevel(levelStr),
		out:       log.New(os.Stderr, "", log.LstdFlags),
	}
}

func parseLevel(s string) Level {
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

func (l *Logger) write(lvl Level, tag, format string, args ...interface{}) {
	if lvl < l.level {
		return
	}
	l.out.Printf("[%s] (%s) "+format, prepend(tag, l.component, args)...)
}

func prepend(tag, component string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+2)
	out = append(out, tag, component)
	out = append(out, args...)
	return out
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.write(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.write(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.write(LevelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.write(LevelError, "ERROR", format, args...) }
