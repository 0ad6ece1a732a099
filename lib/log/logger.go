// Package log provides leveled logging for the threading engine. Logging is
// disabled until Init is called with a writer. The engine only ever logs
// diagnostics; it never logs per-message content.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"strings"
)

type LogLevel int

const (
	TRACE LogLevel = 5
	DEBUG LogLevel = 10
	INFO  LogLevel = 20
	WARN  LogLevel = 30
	ERROR LogLevel = 40
)

var (
	trace    *stdlog.Logger
	dbg      *stdlog.Logger
	info     *stdlog.Logger
	warn     *stdlog.Logger
	err      *stdlog.Logger
	minLevel LogLevel = TRACE
)

// Init routes all log output to w. Passing nil disables logging again.
func Init(w io.Writer, level LogLevel) {
	trace = nil
	dbg = nil
	info = nil
	warn = nil
	err = nil
	minLevel = level
	if w == nil {
		return
	}
	flags := stdlog.Ldate | stdlog.Ltime | stdlog.Lmicroseconds | stdlog.Lshortfile
	trace = stdlog.New(w, "TRACE ", flags)
	dbg = stdlog.New(w, "DEBUG ", flags)
	info = stdlog.New(w, "INFO  ", flags)
	warn = stdlog.New(w, "WARN  ", flags)
	err = stdlog.New(w, "ERROR ", flags)
}

func ParseLevel(value string) (LogLevel, error) {
	switch strings.ToLower(value) {
	case "trace":
		return TRACE, nil
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "err", "error":
		return ERROR, nil
	}
	return 0, fmt.Errorf("%s: invalid log level", value)
}

type Logger interface {
	Tracef(string, ...any)
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
	Errorf(string, ...any)
}

type logger struct {
	name      string
	calldepth int
}

func NewLogger(name string, calldepth int) Logger {
	return &logger{name: name, calldepth: calldepth}
}

func (l *logger) format(message string, args ...any) string {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	if l.name != "" {
		message = fmt.Sprintf("[%s] %s", l.name, message)
	}
	return message
}

func (l *logger) output(log *stdlog.Logger, level LogLevel, message string, args ...any) {
	if log == nil || minLevel > level {
		return
	}
	log.Output(l.calldepth, l.format(message, args...)) //nolint:errcheck // we can't do anything with what we log
}

func (l *logger) Tracef(message string, args ...any) {
	l.output(trace, TRACE, message, args...)
}

func (l *logger) Debugf(message string, args ...any) {
	l.output(dbg, DEBUG, message, args...)
}

func (l *logger) Infof(message string, args ...any) {
	l.output(info, INFO, message, args...)
}

func (l *logger) Warnf(message string, args ...any) {
	l.output(warn, WARN, message, args...)
}

func (l *logger) Errorf(message string, args ...any) {
	l.output(err, ERROR, message, args...)
}

var root = logger{calldepth: 4}

func Tracef(message string, args ...any) {
	root.Tracef(message, args...)
}

func Debugf(message string, args ...any) {
	root.Debugf(message, args...)
}

func Infof(message string, args ...any) {
	root.Infof(message, args...)
}

func Warnf(message string, args ...any) {
	root.Warnf(message, args...)
}

func Errorf(message string, args ...any) {
	root.Errorf(message, args...)
}
