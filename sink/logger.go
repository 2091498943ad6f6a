package sink

import (
	"context"
	"log/slog"
)

// Logger forwards every line as the message of a structured log record.
type Logger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogger creates a sink logging lines to l at level.
func NewLogger(l *slog.Logger, level slog.Level) *Logger {
	return &Logger{logger: l, level: level}
}

// WriteLine logs line. Handler failures are not reported by slog, so this never fails.
func (s *Logger) WriteLine(line string) error {
	s.logger.Log(context.Background(), s.level, line)
	return nil
}

// Close closes the logger's handler when it can be closed.
func (s *Logger) Close() error {
	if closer, ok := s.logger.Handler().(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
