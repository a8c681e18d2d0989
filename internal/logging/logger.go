// Package logging defines the engine's logger interface and its default
// implementations.
//
// Messages carry a component prefix so output can be filtered:
//
//	2026/01/02 15:04:05 INFO [recovery] replayed 12 batches from 000001.log
//
// Fatalf never exits the process. It logs and then invokes the configured
// FatalHandler, which the engine uses to stop accepting writes.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"strings"
	"sync/atomic"
)

// ErrFatal is wrapped by errors caused by a fatal condition.
var ErrFatal = errors.New("fatal error")

// FatalHandler receives the message of a Fatalf call. It must be safe for
// concurrent use and must not call Fatalf.
type FatalHandler func(msg string)

// Level is a logging threshold.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel accepts level names in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "INFO", "":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q", s)
}

// Logger is implemented by every engine logger. Implementations must be
// safe for concurrent use.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)

	// Fatalf logs and then triggers the fatal handler, if any.
	Fatalf(format string, args ...any)
}

// FatalHandlerSetter is implemented by loggers that can route Fatalf to
// a handler.
type FatalHandlerSetter interface {
	SetFatalHandler(h FatalHandler)
}

// Component prefixes.
const (
	NSDB       = "[db] "
	NSWAL      = "[wal] "
	NSRecovery = "[recovery] "
	NSCatalog  = "[catalog] "
	NSBinding  = "[binding] "
)

// DefaultLogger writes through a standard library log.Logger.
type DefaultLogger struct {
	logger *log.Logger
	level  Level
	fatal  atomic.Pointer[FatalHandler]
}

// NewLogger returns a logger writing to w at the given level.
func NewLogger(w io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{logger: log.New(w, "", log.LstdFlags), level: level}
}

// NewDefaultLogger returns a logger writing to stderr.
func NewDefaultLogger(level Level) *DefaultLogger {
	return NewLogger(os.Stderr, level)
}

// SetFatalHandler implements FatalHandlerSetter.
func (l *DefaultLogger) SetFatalHandler(h FatalHandler) { l.fatal.Store(&h) }

// Level returns the threshold.
func (l *DefaultLogger) Level() Level { return l.level }

func (l *DefaultLogger) output(level Level, format string, args []any) {
	if l.level >= level {
		_ = l.logger.Output(3, level.String()+" "+fmt.Sprintf(format, args...))
	}
}

func (l *DefaultLogger) Errorf(format string, args ...any) { l.output(LevelError, format, args) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.output(LevelWarn, format, args) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.output(LevelInfo, format, args) }
func (l *DefaultLogger) Debugf(format string, args ...any) { l.output(LevelDebug, format, args) }

func (l *DefaultLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_ = l.logger.Output(2, "FATAL "+msg)
	if h := l.fatal.Load(); h != nil {
		(*h)(msg)
	}
}

// IsNil reports whether l is nil or a typed nil pointer.
func IsNil(l Logger) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// OrDefault returns l, or a WARN level stderr logger when l is nil.
func OrDefault(l Logger) Logger {
	if IsNil(l) {
		return NewDefaultLogger(LevelWarn)
	}
	return l
}
