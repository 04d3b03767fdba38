package webrtc

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"

	"github.com/chesscast/chesscast/pkg/logger"
)

const trace = zerolog.Level(logger.TraceLevel)

// these pion scopes log every candidate and handshake step
var chattyScopes = map[string]struct{}{"ice": {}, "dtls": {}, "sctp": {}, "mux": {}}

// PionLog puts the pion media logs into the app log under the pion field.
// Info of the chatty scopes goes at the debug level.
type PionLog struct {
	log  *logger.Logger
	info zerolog.Level
}

func NewPionLogger(root *logger.Logger, level int) *PionLog {
	l := root.Level(zerolog.Level(level))
	return &PionLog{log: root.Extend(l.With()), info: zerolog.InfoLevel}
}

func (p PionLog) NewLogger(scope string) logging.LeveledLogger {
	info := zerolog.InfoLevel
	if _, ok := chattyScopes[scope]; ok {
		info = zerolog.DebugLevel
	}
	return PionLog{log: p.log.Extend(p.log.With().Str("pion", scope)), info: info}
}

func (p PionLog) at(level zerolog.Level, msg string) { p.log.WithLevel(level).Msg(msg) }
func (p PionLog) atf(level zerolog.Level, format string, args ...any) {
	p.log.WithLevel(level).Msgf(format, args...)
}

func (p PionLog) Trace(msg string)                  { p.at(trace, msg) }
func (p PionLog) Tracef(format string, args ...any) { p.atf(trace, format, args...) }
func (p PionLog) Debug(msg string)                  { p.at(zerolog.DebugLevel, msg) }
func (p PionLog) Debugf(format string, args ...any) { p.atf(zerolog.DebugLevel, format, args...) }
func (p PionLog) Info(msg string)                   { p.at(p.info, msg) }
func (p PionLog) Infof(format string, args ...any)  { p.atf(p.info, format, args...) }
func (p PionLog) Warn(msg string)                   { p.at(zerolog.WarnLevel, msg) }
func (p PionLog) Warnf(format string, args ...any)  { p.atf(zerolog.WarnLevel, format, args...) }
func (p PionLog) Error(msg string)                  { p.at(zerolog.ErrorLevel, msg) }
func (p PionLog) Errorf(format string, args ...any) { p.atf(zerolog.ErrorLevel, format, args...) }
