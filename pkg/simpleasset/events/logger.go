package events

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// slogAdapter bridges watermill's logger interface onto slog.
type slogAdapter struct {
	l *slog.Logger
}

// NewLoggerAdapter returns a watermill.LoggerAdapter writing to l.
func NewLoggerAdapter(l *slog.Logger) watermill.LoggerAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &slogAdapter{l: l}
}

func attrs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

func (s *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	s.l.Error(msg, append(attrs(fields), "err", err)...)
}

func (s *slogAdapter) Info(msg string, fields watermill.LogFields) {
	s.l.Info(msg, attrs(fields)...)
}

func (s *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	s.l.Debug(msg, attrs(fields)...)
}

// Trace maps to debug; slog has no lower level.
func (s *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	s.l.Debug(msg, attrs(fields)...)
}

func (s *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{l: s.l.With(attrs(fields)...)}
}
