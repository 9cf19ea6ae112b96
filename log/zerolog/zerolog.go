// Package zerolog adapts a zerolog.Logger to redistruct.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/redistruct"
)

var _ redistruct.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "redistruct").Logger()}
}

func (z Logger) Debug(msg string, f redistruct.Fields) { emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f redistruct.Fields)  { emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f redistruct.Fields)  { emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f redistruct.Fields) { emit(z.L.Error(), msg, f) }

// emit is a no-op when the level is disabled (ev == nil).
func emit(ev *zerolog.Event, msg string, f redistruct.Fields) {
	if ev == nil {
		return
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			ev = ev.AnErr(k, err)
			continue
		}
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
