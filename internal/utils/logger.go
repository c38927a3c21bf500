package utils

import "go.uber.org/zap"

// Logger is a thin key-value logging facade over zap's sugared logger.
type Logger struct {
	s *zap.SugaredLogger
}

func NewLogger() *Logger {
	l, _ := zap.NewProduction()
	return &Logger{s: l.Sugar()}
}

// NewNopLogger discards everything; handy in tests.
func NewNopLogger() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// NewLoggerWith wraps an existing zap logger (used with zaptest/observer).
func NewLoggerWith(l *zap.Logger) *Logger {
	return &Logger{s: l.Sugar()}
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l *Logger) Sync() { _ = l.s.Sync() }
