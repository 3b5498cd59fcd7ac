package securityheaders

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps logger, tagging every event with component=securityheaders
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{
		logger: logger.With().Str("component", "securityheaders").Logger(),
	}
}

func (l *ZerologLogger) Debug(args ...interface{}) {
	l.logger.Debug().Msg(sprint(args...))
}

func (l *ZerologLogger) Info(args ...interface{}) {
	l.logger.Info().Msg(sprint(args...))
}

func (l *ZerologLogger) Warn(args ...interface{}) {
	l.logger.Warn().Msg(sprint(args...))
}

func (l *ZerologLogger) Error(args ...interface{}) {
	l.logger.Error().Msg(sprint(args...))
}

// sprint separates every operand with a space, unlike fmt.Sprint
func sprint(args ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
