// Package logging provides the process-wide logger used across Stride.
// It is a thin wrapper over the standard library logger with a level
// filter and a global disable switch for clean CLI output.
package logging

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level controls which messages are emitted.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	disabled atomic.Bool
	minLevel atomic.Int32
	logger   = log.New(os.Stdout, "", log.LstdFlags)
)

func init() {
	minLevel.Store(int32(LevelInfo))
	if lv, ok := parseLevel(os.Getenv("STRIDE_LOG_LEVEL")); ok {
		minLevel.Store(int32(lv))
	}
}

func parseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(lv Level) {
	minLevel.Store(int32(lv))
}

// Disable turns off all logging.
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on.
func Enable() {
	disabled.Store(false)
}

func emit(lv Level, prefix, format string, v []any) {
	if disabled.Load() || int32(lv) < minLevel.Load() {
		return
	}
	logger.Printf(prefix+format, v...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) {
	emit(LevelDebug, "DEBUG ", format, v)
}

// Infof logs a formatted info message.
func Infof(format string, v ...any) {
	emit(LevelInfo, "", format, v)
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) {
	emit(LevelWarn, "WARN ", format, v)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) {
	emit(LevelError, "ERROR ", format, v)
}
