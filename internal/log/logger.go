// SPDX-License-Identifier: MIT
/*
Package log is the leveled logger shared by every pitchtrack component.

Output goes to stderr so stdout stays free for pitch records. Packages log
through a Component, which tags each line with the part of the pipeline it
came from:

	var logger = log.Named("Dispatch")

	logger.Debugf("start %s", format)
	// 2024/01/02 15:04:05.000000 [DEBUG] Dispatch: start 44100 Hz ...

The level is global and may be changed while the pipeline runs, for example
when a watched configuration file is edited.
*/
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name, case-insensitively, to a LogLevel. It
// returns LevelInfo and false for unknown names.
func ParseLevel(name string) (LogLevel, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "WARNING" {
		return LevelWarn, true
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

var (
	currentLevel atomic.Uint32
	logger       = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level. It is safe to call concurrently
// with logging.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the global logging level.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Enabled reports whether messages at level are currently written.
func Enabled(level LogLevel) bool {
	return level >= GetLevel()
}

// output writes one line. Tags are padded so messages line up.
func output(level LogLevel, prefix, format string, v ...any) {
	tag := "[" + level.String() + "]"
	logger.Printf("%-7s %s%s", tag, prefix, fmt.Sprintf(format, v...))
}

// Component logs on behalf of one part of the pipeline.
type Component struct {
	prefix string
}

// Named returns a Component whose lines start with "name: ".
func Named(name string) *Component {
	return &Component{prefix: name + ": "}
}

func (c *Component) Debugf(format string, v ...any) { c.logf(LevelDebug, format, v...) }
func (c *Component) Infof(format string, v ...any)  { c.logf(LevelInfo, format, v...) }
func (c *Component) Warnf(format string, v ...any)  { c.logf(LevelWarn, format, v...) }
func (c *Component) Errorf(format string, v ...any) { c.logf(LevelError, format, v...) }

func (c *Component) logf(level LogLevel, format string, v ...any) {
	if Enabled(level) {
		output(level, c.prefix, format, v...)
	}
}

// Debugf logs a debug message without a component.
func Debugf(format string, v ...any) {
	if Enabled(LevelDebug) {
		output(LevelDebug, "", format, v...)
	}
}

// Infof logs an info message without a component.
func Infof(format string, v ...any) {
	if Enabled(LevelInfo) {
		output(LevelInfo, "", format, v...)
	}
}

// Fatalf logs regardless of the level and exits with status 1.
func Fatalf(format string, v ...any) {
	output(LevelFatal, "", format, v...)
	os.Exit(1)
}
