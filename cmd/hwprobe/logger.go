package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// newLogger creates the zerolog logger. "auto" picks the console writer
// when out is a terminal and JSON otherwise.
func newLogger(out *os.File, level, format string) zerolog.Logger {
	if format == "auto" {
		format = "json"
		if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
			format = "console"
		}
	}

	var w io.Writer = out
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// zerologFactory routes hwcodec's pion loggers into zerolog.
type zerologFactory struct {
	log zerolog.Logger
}

func (f zerologFactory) NewLogger(scope string) logging.LeveledLogger {
	return zerologLeveled{log: f.log.With().Str("scope", scope).Logger()}
}

type zerologLeveled struct {
	log zerolog.Logger
}

func (l zerologLeveled) Trace(msg string)                  { l.log.Trace().Msg(msg) }
func (l zerologLeveled) Tracef(format string, args ...any) { l.log.Trace().Msgf(format, args...) }
func (l zerologLeveled) Debug(msg string)                  { l.log.Debug().Msg(msg) }
func (l zerologLeveled) Debugf(format string, args ...any) { l.log.Debug().Msgf(format, args...) }
func (l zerologLeveled) Info(msg string)                   { l.log.Info().Msg(msg) }
func (l zerologLeveled) Infof(format string, args ...any)  { l.log.Info().Msgf(format, args...) }
func (l zerologLeveled) Warn(msg string)                   { l.log.Warn().Msg(msg) }
func (l zerologLeveled) Warnf(format string, args ...any)  { l.log.Warn().Msgf(format, args...) }
func (l zerologLeveled) Error(msg string)                  { l.log.Error().Msg(msg) }
func (l zerologLeveled) Errorf(format string, args ...any) { l.log.Error().Msgf(format, args...) }
