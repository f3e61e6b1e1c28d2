package hwcodec

import (
	"sync"
	"sync/atomic"

	"github.com/pion/logging"
)

var (
	loggerMu      sync.Mutex
	loggerFactory logging.LoggerFactory = logging.NewDefaultLoggerFactory()
	loggers       []*scopedLogger
)

// Package loggers. They follow SetLoggerFactory.
var (
	nativeLog  = newScopedLogger("hwcodec-native")
	decoderLog = newScopedLogger("hwcodec-decoder")
	proberLog  = newScopedLogger("hwcodec-prober")
	ingestLog  = newScopedLogger("hwcodec-ingest")
)

// SetLoggerFactory replaces the factory behind every package logger. A nil
// factory restores pion's default.
func SetLoggerFactory(f logging.LoggerFactory) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if f == nil {
		f = logging.NewDefaultLoggerFactory()
	}
	loggerFactory = f
	for _, l := range loggers {
		l.set(f.NewLogger(l.scope))
	}
}

// scopedLogger is a LeveledLogger whose backend can be swapped at runtime.
type scopedLogger struct {
	scope string
	v     atomic.Value // logging.LeveledLogger
}

func newScopedLogger(scope string) *scopedLogger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	l := &scopedLogger{scope: scope}
	l.set(loggerFactory.NewLogger(scope))
	loggers = append(loggers, l)
	return l
}

type loggerBox struct{ logging.LeveledLogger }

func (l *scopedLogger) set(ll logging.LeveledLogger) { l.v.Store(loggerBox{ll}) }
func (l *scopedLogger) get() logging.LeveledLogger  { return l.v.Load().(loggerBox).LeveledLogger }

func (l *scopedLogger) Trace(msg string)                          { l.get().Trace(msg) }
func (l *scopedLogger) Tracef(format string, args ...interface{}) { l.get().Tracef(format, args...) }
func (l *scopedLogger) Debug(msg string)                          { l.get().Debug(msg) }
func (l *scopedLogger) Debugf(format string, args ...interface{}) { l.get().Debugf(format, args...) }
func (l *scopedLogger) Info(msg string)                           { l.get().Info(msg) }
func (l *scopedLogger) Infof(format string, args ...interface{})  { l.get().Infof(format, args...) }
func (l *scopedLogger) Warn(msg string)                           { l.get().Warn(msg) }
func (l *scopedLogger) Warnf(format string, args ...interface{})  { l.get().Warnf(format, args...) }
func (l *scopedLogger) Error(msg string)                          { l.get().Error(msg) }
func (l *scopedLogger) Errorf(format string, args ...interface{}) { l.get().Errorf(format, args...) }
