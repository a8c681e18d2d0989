package logging

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap logger to Logger. Level filtering is left to the
// zap core. Fatalf is logged at error level with fatal=true instead of
// zap's Fatal, which would exit the process.
type ZapLogger struct {
	s     *zap.SugaredLogger
	fatal atomic.Pointer[FatalHandler]
}

// NewZapLogger wraps l.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// SetFatalHandler implements FatalHandlerSetter.
func (z *ZapLogger) SetFatalHandler(h FatalHandler) { z.fatal.Store(&h) }

func (z *ZapLogger) Errorf(format string, args ...any) { z.s.Errorf(format, args...) }
func (z *ZapLogger) Warnf(format string, args ...any)  { z.s.Warnf(format, args...) }
func (z *ZapLogger) Infof(format string, args ...any)  { z.s.Infof(format, args...) }
func (z *ZapLogger) Debugf(format string, args ...any) { z.s.Debugf(format, args...) }

func (z *ZapLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	z.s.Errorw(msg, "fatal", true)
	if h := z.fatal.Load(); h != nil {
		(*h)(msg)
	}
}

// ZapLevel maps a Level onto zap's levels.
func ZapLevel(l Level) zapcore.Level {
	switch l {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
