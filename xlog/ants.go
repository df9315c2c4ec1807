package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newComponentXLogger derives a named child logger which shares the
// parent writers and level but drops the caller and function keys.
// Cores not built by this package, like the nop core, are kept as is.
func newComponentXLogger(parent XLogger, name string) XLogger {
	l := &xLogger{}
	if xl, ok := parent.(*xLogger); ok {
		l.dynamicLevelEnabler = xl.dynamicLevelEnabler
		l.encoder = xl.encoder
	} else {
		l.dynamicLevelEnabler = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l.logger.Store(parent.
		zap().
		Named(name).
		WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			var (
				cc  XLogCore
				err error
			)
			switch c := core.(type) {
			case xLogMultiCore:
				cc, err = WrapCores(c, componentCoreEncoderCfg)
			case XLogCore:
				cc, err = WrapCore(c, componentCoreEncoderCfg)
			default:
				return core
			}
			if err != nil {
				return core
			}
			return cc
		})),
	)
	return l
}

// AntsXLogger adapts XLogger to the ants.Logger interface.
// The pool only reports worker panics and internal failures,
// so everything is printed at the error level.
type AntsXLogger struct {
	logger XLogger
}

func (l *AntsXLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Logf(zapcore.ErrorLevel, format, args...)
}

func NewAntsXLogger(logger XLogger) *AntsXLogger {
	if logger == nil {
		return &AntsXLogger{}
	}
	return &AntsXLogger{
		logger: newComponentXLogger(logger, "Ants"),
	}
}
