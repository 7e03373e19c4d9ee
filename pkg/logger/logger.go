// Package logger provides the leveled key-value logger used across the core.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level represents a logging level.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Logger is the logging interface the core packages depend on.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
}

// Leveled implements Logger on top of the standard log package.
type Leveled struct {
	level  Level
	logger *log.Logger
}

// New creates a logger writing to stderr at the given level name
// ("debug", "info", "warn", "error"; anything else means info).
func New(levelStr string) *Leveled {
	return NewWithWriter(levelStr, os.Stderr)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(levelStr string, w io.Writer) *Leveled {
	return &Leveled{
		level:  parseLevel(levelStr),
		logger: log.New(w, "", 0),
	}
}

func (l *Leveled) Debug(msg string, fields ...interface{}) {
	if l.level <= DEBUG {
		l.log("DEBUG", msg, fields...)
	}
}

func (l *Leveled) Info(msg string, fields ...interface{}) {
	if l.level <= INFO {
		l.log("INFO", msg, fields...)
	}
}

func (l *Leveled) Warn(msg string, fields ...interface{}) {
	if l.level <= WARN {
		l.log("WARN", msg, fields...)
	}
}

func (l *Leveled) Error(msg string, err error, fields ...interface{}) {
	if l.level <= ERROR {
		all := append([]interface{}{"error", err}, fields...)
		l.log("ERROR", msg, all...)
	}
}

func (l *Leveled) log(level, msg string, fields ...interface{}) {
	out := fmt.Sprintf("[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), level, msg)
	if len(fields) > 0 {
		pairs := make([]string, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			pairs = append(pairs, fmt.Sprintf("%v=%v", fields[i], fields[i+1]))
		}
		if len(pairs) > 0 {
			out += " " + strings.Join(pairs, " ")
		}
	}
	l.logger.Println(out)
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Nop is a logger that discards everything; handy default for library use.
type Nop struct{}

func (Nop) Debug(string, ...interface{})        {}
func (Nop) Info(string, ...interface{})         {}
func (Nop) Warn(string, ...interface{})         {}
func (Nop) Error(string, error, ...interface{}) {}
